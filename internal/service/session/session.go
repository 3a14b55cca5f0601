// Package session 提供按会话隔离的对话状态存储
// 内存为主，可选 Redis 写穿透缓存；同一会话的写操作串行化
package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/clinforge/cdisc-assistant/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	// 会话在 Redis 中的过期时间（24小时）
	sessionTTL = 24 * time.Hour
	// Redis key 前缀
	sessionKeyPrefix = "session:"
)

// Manager 会话管理器
type Manager struct {
	mu     sync.RWMutex
	memory map[string]*state
	redis  *redis.Client // 可为 nil，此时仅使用内存
}

// state 单个会话的内部状态
type state struct {
	ID        string
	Messages  []*model.Message
	Files     []*model.FileRecord
	NextID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// sessionData 会话数据（用于 Redis 存储）
type sessionData struct {
	ID        string           `json:"id"`
	Messages  []*model.Message `json:"messages"`
	Files     []*fileData      `json:"files"`
	NextID    int64            `json:"next_id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// fileData 文件记录的持久化形式
// FileRecord 的 StoragePath 和 Priority 不对外序列化，这里必须完整保留
type fileData struct {
	Name        string         `json:"name"`
	Type        model.FileType `json:"type"`
	StoragePath string         `json:"storage_path"`
	Priority    bool           `json:"priority"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}

func toFileData(recs []*model.FileRecord) []*fileData {
	out := make([]*fileData, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &fileData{
			Name:        rec.Name,
			Type:        rec.Type,
			StoragePath: rec.StoragePath,
			Priority:    rec.Priority,
			UploadedAt:  rec.UploadedAt,
		})
	}
	return out
}

func fromFileData(data []*fileData) []*model.FileRecord {
	out := make([]*model.FileRecord, 0, len(data))
	for _, fd := range data {
		out = append(out, &model.FileRecord{
			Name:        fd.Name,
			Type:        fd.Type,
			StoragePath: fd.StoragePath,
			Priority:    fd.Priority,
			UploadedAt:  fd.UploadedAt,
		})
	}
	return out
}

// NewManager 创建会话管理器
func NewManager(redisClient *redis.Client) *Manager {
	return &Manager{
		memory: make(map[string]*state),
		redis:  redisClient,
	}
}

// Append 追加一条消息并分配该会话内下一个单调 ID
func (m *Manager) Append(ctx context.Context, sessionID string, role model.Role, content string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.getLocked(ctx, sessionID)
	sess.NextID++
	msg := &model.Message{
		ID:        sess.NextID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()

	m.saveLocked(ctx, sess)
	return msg, nil
}

// History 返回会话全部消息（按追加顺序的副本）
func (m *Manager) History(ctx context.Context, sessionID string) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.getLocked(ctx, sessionID)
	out := make([]*model.Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out, nil
}

// Clear 清空会话的消息与文件记录
// 返回被清除的文件记录，便于调用方一并清理存储的文件内容
func (m *Manager) Clear(ctx context.Context, sessionID string) ([]*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.memory[sessionID]
	if !ok {
		sess = m.loadFromRedis(ctx, sessionID)
	}
	var removed []*model.FileRecord
	if sess != nil {
		removed = sess.Files
	}

	delete(m.memory, sessionID)

	if m.redis != nil {
		if err := m.redis.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
			log.Printf("Warning: failed to delete session from redis: %v", err)
		}
	}

	return removed, nil
}

// PutFile 登记一条文件记录；同名记录原位覆盖，返回被替换的旧记录
func (m *Manager) PutFile(ctx context.Context, sessionID string, rec *model.FileRecord) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.getLocked(ctx, sessionID)
	for i, existing := range sess.Files {
		if existing.Name == rec.Name {
			sess.Files[i] = rec
			sess.UpdatedAt = time.Now()
			m.saveLocked(ctx, sess)
			return existing, nil
		}
	}

	sess.Files = append(sess.Files, rec)
	sess.UpdatedAt = time.Now()
	m.saveLocked(ctx, sess)
	return nil, nil
}

// Files 返回会话的文件记录（按上传顺序的副本）
func (m *Manager) Files(ctx context.Context, sessionID string) ([]*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.getLocked(ctx, sessionID)
	out := make([]*model.FileRecord, len(sess.Files))
	copy(out, sess.Files)
	return out, nil
}

// RemoveFile 删除指定名称的文件记录，幂等；不存在时返回 false
func (m *Manager) RemoveFile(ctx context.Context, sessionID, name string) (*model.FileRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.getLocked(ctx, sessionID)
	for i, rec := range sess.Files {
		if rec.Name == name {
			sess.Files = append(sess.Files[:i], sess.Files[i+1:]...)
			sess.UpdatedAt = time.Now()
			m.saveLocked(ctx, sess)
			return rec, true, nil
		}
	}
	return nil, false, nil
}

// getLocked 获取会话状态，必要时从 Redis 加载或新建
// 调用方必须持有 m.mu
func (m *Manager) getLocked(ctx context.Context, sessionID string) *state {
	if sess, ok := m.memory[sessionID]; ok {
		return sess
	}

	if sess := m.loadFromRedis(ctx, sessionID); sess != nil {
		m.memory[sessionID] = sess
		return sess
	}

	sess := &state{
		ID:        sessionID,
		Messages:  []*model.Message{},
		Files:     []*model.FileRecord{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.memory[sessionID] = sess
	return sess
}

// saveLocked 将会话同步到 Redis，失败仅记录日志不影响主流程
func (m *Manager) saveLocked(ctx context.Context, sess *state) {
	if m.redis == nil {
		return
	}

	data, err := json.Marshal(&sessionData{
		ID:        sess.ID,
		Messages:  sess.Messages,
		Files:     toFileData(sess.Files),
		NextID:    sess.NextID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
	if err != nil {
		log.Printf("Warning: failed to marshal session %s: %v", sess.ID, err)
		return
	}

	if err := m.redis.Set(ctx, sessionKeyPrefix+sess.ID, data, sessionTTL).Err(); err != nil {
		log.Printf("Warning: failed to save session to redis: %v", err)
	}
}

// loadFromRedis 从 Redis 加载会话，不存在或解析失败时返回 nil
func (m *Manager) loadFromRedis(ctx context.Context, sessionID string) *state {
	if m.redis == nil {
		return nil
	}

	data, err := m.redis.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return nil
	}

	var sd sessionData
	if err := json.Unmarshal([]byte(data), &sd); err != nil {
		return nil
	}

	return &state{
		ID:        sd.ID,
		Messages:  sd.Messages,
		Files:     fromFileData(sd.Files),
		NextID:    sd.NextID,
		CreatedAt: sd.CreatedAt,
		UpdatedAt: sd.UpdatedAt,
	}
}
