package upload

import (
	"context"
	"io"
)

// Storage 文件内容存储接口
type Storage interface {
	// Save 保存文件内容，返回存储路径
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// Get 获取文件内容
	Get(ctx context.Context, storagePath string) (io.ReadCloser, error)
	// Delete 删除文件内容
	Delete(ctx context.Context, storagePath string) error
	// DeleteSession 删除会话范围内的全部文件内容
	DeleteSession(ctx context.Context, sessionID string) error
}

// SaveRequest 保存文件请求
type SaveRequest struct {
	SessionID string
	FileName  string
	Size      int64
	Reader    io.Reader
}
