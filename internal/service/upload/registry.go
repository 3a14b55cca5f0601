// Package upload 提供会话范围的上传文件登记与存储
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/clinforge/cdisc-assistant/internal/model"
	"github.com/clinforge/cdisc-assistant/internal/service/session"
)

var (
	// ErrUnsupportedType 文件扩展名不在许可列表中
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge 文件超出大小上限
	ErrTooLarge = errors.New("file too large")
	// ErrEmptyName 文件名为空
	ErrEmptyName = errors.New("empty filename")
)

// allowedExtensions 上传许可列表
var allowedExtensions = map[string]bool{
	".csv":      true,
	".xml":      true,
	".xpt":      true,
	".sas7bdat": true,
}

// unsafeChars 文件名中需要替换的字符
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Registry 文件登记表
// 记录保存在会话存储中，文件内容保存在 Storage 中
type Registry struct {
	sessions *session.Manager
	storage  Storage
	maxSize  int64
}

// NewRegistry 创建文件登记表
func NewRegistry(sessions *session.Manager, storage Storage, maxSize int64) *Registry {
	return &Registry{
		sessions: sessions,
		storage:  storage,
		maxSize:  maxSize,
	}
}

// Register 校验并登记上传文件
// 同名文件原位覆盖旧记录并删除旧内容，不保留版本
func (r *Registry) Register(ctx context.Context, sessionID, filename string, size int64, reader io.Reader) (*model.FileRecord, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, ErrEmptyName
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	if r.maxSize > 0 {
		if size > r.maxSize {
			return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, r.maxSize)
		}
		reader = io.LimitReader(reader, r.maxSize)
	}

	storagePath, err := r.storage.Save(ctx, &SaveRequest{
		SessionID: sessionID,
		FileName:  name,
		Size:      size,
		Reader:    reader,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	rec := &model.FileRecord{
		Name:        name,
		Type:        model.FileTypeOf(name),
		StoragePath: storagePath,
		Priority:    isContextPriority(name),
		UploadedAt:  time.Now(),
	}

	old, err := r.sessions.PutFile(ctx, sessionID, rec)
	if err != nil {
		_ = r.storage.Delete(ctx, storagePath)
		return nil, fmt.Errorf("failed to register file: %w", err)
	}
	if old != nil && old.StoragePath != "" {
		_ = r.storage.Delete(ctx, old.StoragePath)
	}

	return rec, nil
}

// List 返回会话的文件记录，上下文优先文件在前，组内保持上传顺序
func (r *Registry) List(ctx context.Context, sessionID string) ([]*model.FileRecord, error) {
	files, err := r.sessions.Files(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Priority && !files[j].Priority
	})
	return files, nil
}

// Remove 删除文件记录及其内容，幂等；记录不存在时返回 nil
// 返回被删除的记录，便于调用方清理按存储路径索引的派生状态
func (r *Registry) Remove(ctx context.Context, sessionID, name string) (*model.FileRecord, error) {
	rec, ok, err := r.sessions.RemoveFile(ctx, sessionID, sanitizeFilename(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if rec.StoragePath != "" {
		_ = r.storage.Delete(ctx, rec.StoragePath)
	}
	return rec, nil
}

// DiscardStored 删除会话范围的全部文件内容（记录由会话存储的 Clear 清除）
func (r *Registry) DiscardStored(ctx context.Context, sessionID string) error {
	return r.storage.DeleteSession(ctx, sessionID)
}

// AbsolutePath 返回记录对应的本地文件路径（仅本地存储支持）
func (r *Registry) AbsolutePath(rec *model.FileRecord) (string, bool) {
	type pather interface{ Path(string) string }
	if p, ok := r.storage.(pather); ok {
		return p.Path(rec.StoragePath), true
	}
	return "", false
}

// sanitizeFilename 归一化文件名，仅保留基础名中的安全字符
func sanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// isContextPriority 判断文件是否为上下文优先文件
// 文件名含不区分大小写的 "edc" 或 "sdtm" 即视为优先，影响提示词中的排序
func isContextPriority(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "edc") || strings.Contains(lower, "sdtm")
}
