package handler

import (
	"errors"
	"fmt"
	"log"

	"github.com/clinforge/cdisc-assistant/internal/middleware"
	"github.com/clinforge/cdisc-assistant/internal/model"
	"github.com/clinforge/cdisc-assistant/internal/service"
	"github.com/clinforge/cdisc-assistant/internal/service/upload"
	"github.com/gin-gonic/gin"
)

// FileHandler 文件处理器
type FileHandler struct {
	svc *service.Services
}

// NewFileHandler 创建文件处理器
func NewFileHandler(svc *service.Services) *FileHandler {
	return &FileHandler{svc: svc}
}

// fileInfo 文件描述对外格式
type fileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func toFileInfo(rec *model.FileRecord) fileInfo {
	return fileInfo{Name: rec.Name, Type: rec.Label()}
}

// UploadFile 上传会话文件
func (h *FileHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, gin.H{"message": "No file part"})
		return
	}
	if fileHeader.Filename == "" {
		fail(c, gin.H{"message": "No selected file"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, gin.H{"message": "Failed to read uploaded file."})
		return
	}
	defer f.Close()

	sessionID := middleware.GetSessionID(c)

	rec, err := h.svc.Registry.Register(c.Request.Context(), sessionID, fileHeader.Filename, fileHeader.Size, f)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			fail(c, gin.H{"message": "File type not allowed"})
		case errors.Is(err, upload.ErrTooLarge):
			fail(c, gin.H{"message": "File is too large."})
		case errors.Is(err, upload.ErrEmptyName):
			fail(c, gin.H{"message": "No selected file"})
		default:
			log.Printf("upload failed for session %s: %v", sessionID, err)
			fail(c, gin.H{"message": "Failed to store uploaded file."})
		}
		return
	}

	ok(c, gin.H{
		"message":  fmt.Sprintf("%s uploaded successfully and added to the conversation", rec.Label()),
		"filename": rec.Name,
		"fileInfo": toFileInfo(rec),
	})
}

// ListFiles 返回当前会话的文件列表
func (h *FileHandler) ListFiles(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	records, err := h.svc.Registry.List(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("failed to list files for session %s: %v", sessionID, err)
		fail(c, gin.H{"message": "Failed to list files."})
		return
	}

	files := make([]fileInfo, 0, len(records))
	for _, rec := range records {
		files = append(files, toFileInfo(rec))
	}

	ok(c, gin.H{"assistant_files": files})
}

// DeleteFile 删除会话中的单个文件
func (h *FileHandler) DeleteFile(c *gin.Context) {
	name := c.Param("name")
	sessionID := middleware.GetSessionID(c)

	removed, err := h.svc.Chat.RemoveFile(c.Request.Context(), sessionID, name)
	if err != nil {
		log.Printf("failed to delete file %s for session %s: %v", name, sessionID, err)
		fail(c, gin.H{"message": "Failed to delete file."})
		return
	}
	if !removed {
		fail(c, gin.H{"message": "File not found"})
		return
	}

	ok(c, gin.H{"message": fmt.Sprintf("%s removed from the conversation", name)})
}
