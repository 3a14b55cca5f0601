// Package session 提供会话存储单元测试
package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/clinforge/cdisc-assistant/internal/model"
)

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	first, err := m.Append(ctx, "s1", model.RoleUser, "hello")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	second, err := m.Append(ctx, "s1", model.RoleAssistant, "hi")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if first.ID >= second.ID {
		t.Errorf("ids not strictly increasing: %d then %d", first.ID, second.ID)
	}

	history, err := m.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Role != model.RoleUser || history[0].Content != "hello" {
		t.Errorf("history[0] = %+v, want user/hello", history[0])
	}
	if history[1].Role != model.RoleAssistant || history[1].Content != "hi" {
		t.Errorf("history[1] = %+v, want assistant/hi", history[1])
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	m.Append(ctx, "a", model.RoleUser, "first")
	msg, _ := m.Append(ctx, "b", model.RoleUser, "other session")

	// 每个会话的 ID 序列独立
	if msg.ID != 1 {
		t.Errorf("first message id in fresh session = %d, want 1", msg.ID)
	}

	history, _ := m.History(ctx, "a")
	if len(history) != 1 {
		t.Errorf("session a history length = %d, want 1", len(history))
	}
}

func TestClearEmptiesHistoryAndFiles(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	m.Append(ctx, "s1", model.RoleUser, "hello")
	m.Append(ctx, "s1", model.RoleAssistant, "hi")
	m.PutFile(ctx, "s1", &model.FileRecord{Name: "notes.csv", Type: model.FileTypeCSV, UploadedAt: time.Now()})

	removed, err := m.Clear(ctx, "s1")
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(removed) != 1 {
		t.Errorf("Clear() removed %d file records, want 1", len(removed))
	}

	history, _ := m.History(ctx, "s1")
	if len(history) != 0 {
		t.Errorf("history after clear = %d messages, want 0", len(history))
	}
	files, _ := m.Files(ctx, "s1")
	if len(files) != 0 {
		t.Errorf("files after clear = %d records, want 0", len(files))
	}
}

func TestPutFileReplacesByName(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	m.PutFile(ctx, "s1", &model.FileRecord{Name: "edc_meta.csv", StoragePath: "p1"})
	m.PutFile(ctx, "s1", &model.FileRecord{Name: "notes.csv", StoragePath: "p2"})
	old, err := m.PutFile(ctx, "s1", &model.FileRecord{Name: "edc_meta.csv", StoragePath: "p3"})
	if err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}
	if old == nil || old.StoragePath != "p1" {
		t.Errorf("PutFile() replaced = %+v, want old record with path p1", old)
	}

	files, _ := m.Files(ctx, "s1")
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2 (replace, not duplicate)", len(files))
	}
	// 覆盖保留原有位置
	if files[0].Name != "edc_meta.csv" || files[0].StoragePath != "p3" {
		t.Errorf("files[0] = %+v, want replaced edc_meta.csv at original slot", files[0])
	}
}

func TestSessionDataRoundTripKeepsFileFields(t *testing.T) {
	recs := []*model.FileRecord{
		{
			Name:        "edc_meta.csv",
			Type:        model.FileTypeCSV,
			StoragePath: "s1/ab12.csv",
			Priority:    true,
			UploadedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{Name: "notes.xml", Type: model.FileTypeXML, StoragePath: "s1/cd34.xml"},
	}

	data, err := json.Marshal(&sessionData{ID: "s1", Files: toFileData(recs)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var sd sessionData
	if err := json.Unmarshal(data, &sd); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	restored := fromFileData(sd.Files)
	if len(restored) != 2 {
		t.Fatalf("restored %d file records, want 2", len(restored))
	}
	if restored[0].StoragePath != "s1/ab12.csv" {
		t.Errorf("restored[0].StoragePath = %q, want s1/ab12.csv", restored[0].StoragePath)
	}
	if !restored[0].Priority {
		t.Error("restored[0].Priority = false, want true")
	}
	if !restored[0].UploadedAt.Equal(recs[0].UploadedAt) {
		t.Errorf("restored[0].UploadedAt = %v, want %v", restored[0].UploadedAt, recs[0].UploadedAt)
	}
	if restored[1].StoragePath != "s1/cd34.xml" || restored[1].Priority {
		t.Errorf("restored[1] = %+v, want non-priority record with path s1/cd34.xml", restored[1])
	}
}

func TestRemoveFileIdempotent(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	m.PutFile(ctx, "s1", &model.FileRecord{Name: "notes.csv"})

	if _, ok, _ := m.RemoveFile(ctx, "s1", "notes.csv"); !ok {
		t.Error("RemoveFile() existing = false, want true")
	}
	if _, ok, _ := m.RemoveFile(ctx, "s1", "notes.csv"); ok {
		t.Error("RemoveFile() repeated = true, want false")
	}
	if _, ok, _ := m.RemoveFile(ctx, "s1", "absent.csv"); ok {
		t.Error("RemoveFile() absent = true, want false")
	}
}
