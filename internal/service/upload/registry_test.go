// Package upload 提供文件登记表单元测试
package upload

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clinforge/cdisc-assistant/internal/service/session"
)

func newTestRegistry(t *testing.T, maxSize int64) *Registry {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return NewRegistry(session.NewManager(nil), storage, maxSize)
}

func TestRegisterAndList(t *testing.T) {
	r := newTestRegistry(t, 1<<20)
	ctx := context.Background()

	rec, err := r.Register(ctx, "s1", "notes.csv", 5, strings.NewReader("a,b,c"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if rec.Name != "notes.csv" {
		t.Errorf("Name = %q, want notes.csv", rec.Name)
	}
	if rec.Priority {
		t.Error("notes.csv marked priority, want false")
	}

	files, err := r.List(ctx, "s1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 1 || files[0].Name != "notes.csv" {
		t.Errorf("List() = %v, want [notes.csv]", files)
	}
}

func TestPriorityOrdering(t *testing.T) {
	r := newTestRegistry(t, 1<<20)
	ctx := context.Background()

	// 普通文件先上传，优先文件后上传，列表仍应优先文件在前
	if _, err := r.Register(ctx, "s1", "notes.csv", 3, strings.NewReader("a,b")); err != nil {
		t.Fatalf("Register(notes.csv) error = %v", err)
	}
	if _, err := r.Register(ctx, "s1", "EDC_mapping.csv", 3, strings.NewReader("x,y")); err != nil {
		t.Fatalf("Register(EDC_mapping.csv) error = %v", err)
	}

	files, err := r.List(ctx, "s1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
	if files[0].Name != "EDC_mapping.csv" {
		t.Errorf("files[0] = %q, want EDC_mapping.csv first", files[0].Name)
	}
	if files[1].Name != "notes.csv" {
		t.Errorf("files[1] = %q, want notes.csv second", files[1].Name)
	}
}

func TestRegisterRejectsUnsupportedType(t *testing.T) {
	r := newTestRegistry(t, 1<<20)
	ctx := context.Background()

	_, err := r.Register(ctx, "s1", "report.docx", 10, strings.NewReader("0123456789"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Register(.docx) error = %v, want ErrUnsupportedType", err)
	}

	// 被拒绝的文件不应出现在列表中
	files, _ := r.List(ctx, "s1")
	if len(files) != 0 {
		t.Errorf("List() after rejected upload = %v, want empty", files)
	}
}

func TestRegisterRejectsOversized(t *testing.T) {
	r := newTestRegistry(t, 4)
	ctx := context.Background()

	_, err := r.Register(ctx, "s1", "big.csv", 10, strings.NewReader("0123456789"))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Register(oversized) error = %v, want ErrTooLarge", err)
	}
}

func TestRegisterReplacesSameName(t *testing.T) {
	r := newTestRegistry(t, 1<<20)
	ctx := context.Background()

	first, err := r.Register(ctx, "s1", "sdtm_spec.xml", 4, strings.NewReader("<a/>"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	second, err := r.Register(ctx, "s1", "sdtm_spec.xml", 4, strings.NewReader("<b/>"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if first.StoragePath == second.StoragePath {
		t.Error("replacement kept old storage path")
	}

	files, _ := r.List(ctx, "s1")
	if len(files) != 1 {
		t.Fatalf("len(files) = %d, want 1 after replacement", len(files))
	}

	// 旧内容应已删除
	if _, err := r.storage.Get(ctx, first.StoragePath); err == nil {
		t.Error("old file content still readable after replacement")
	}
	reader, err := r.storage.Get(ctx, second.StoragePath)
	if err != nil {
		t.Fatalf("storage.Get(new) error = %v", err)
	}
	reader.Close()
}

func TestRemoveIdempotent(t *testing.T) {
	r := newTestRegistry(t, 1<<20)
	ctx := context.Background()

	if _, err := r.Register(ctx, "s1", "notes.csv", 3, strings.NewReader("a,b")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rec, err := r.Remove(ctx, "s1", "notes.csv")
	if err != nil || rec == nil {
		t.Fatalf("Remove() = %v, %v, want record, nil", rec, err)
	}
	rec, err = r.Remove(ctx, "s1", "notes.csv")
	if err != nil || rec != nil {
		t.Fatalf("Remove() repeated = %v, %v, want nil, nil", rec, err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"notes.csv", "notes.csv"},
		{"../../etc/passwd.csv", "passwd.csv"},
		{"dir/sub/data.xml", "data.xml"},
		{"weird name!.csv", "weird_name_.csv"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsContextPriority(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"EDC_mapping.csv", true},
		{"sdtm_ig_v3.xml", true},
		{"SDTM.xpt", true},
		{"notes.csv", false},
		{"lab_results.sas7bdat", false},
	}
	for _, tt := range tests {
		if got := isContextPriority(tt.name); got != tt.want {
			t.Errorf("isContextPriority(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
