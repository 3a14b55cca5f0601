package model

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType 上传文件类型（按扩展名分类）
type FileType string

const (
	FileTypeCSV      FileType = "csv"
	FileTypeXML      FileType = "xml"
	FileTypeXPT      FileType = "xpt"
	FileTypeSAS7BDAT FileType = "sas7bdat"
	FileTypeOther    FileType = "other"
)

// FileRecord 会话内的上传文件记录
// Name 在单个会话内唯一，重复上传覆盖旧记录
type FileRecord struct {
	Name        string    `json:"name"`
	Type        FileType  `json:"type"`
	StoragePath string    `json:"-"`
	Priority    bool      `json:"-"`
	UploadedAt  time.Time `json:"upload_time"`
}

// FileTypeOf 根据文件名后缀返回文件类型
func FileTypeOf(filename string) FileType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "csv":
		return FileTypeCSV
	case "xml":
		return FileTypeXML
	case "xpt":
		return FileTypeXPT
	case "sas7bdat":
		return FileTypeSAS7BDAT
	default:
		return FileTypeOther
	}
}

// Label 返回文件的描述性标签，用于提示词中的文件描述符
func (r *FileRecord) Label() string {
	lower := strings.ToLower(r.Name)
	switch {
	case strings.Contains(lower, "edc"):
		return "EDC Metadata"
	case strings.Contains(lower, "sdtm"):
		return "SDTM Metadata"
	case r.Type == FileTypeXPT || r.Type == FileTypeSAS7BDAT:
		return "Clinical Data"
	case r.Type == FileTypeXML:
		return "XML Document"
	default:
		return "Document"
	}
}
