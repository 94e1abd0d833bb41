package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "journal.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestLastSessionEmpty(t *testing.T) {
	m := openTestManager(t)
	if _, err := m.LastSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("期望 ErrNoSession, 实际 %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	m := openTestManager(t)

	first, err := m.BeginSession("/photos/a", nil)
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	s, err := m.BeginSession("/photos/b", map[string]string{"threads": "4"})
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	if first.ID == s.ID {
		t.Fatal("会话ID应唯一")
	}

	records := []FileRecord{
		{Path: "/photos/b/1.jpg", Output: "/photos/b/1.jxl", Outcome: "success", Mode: "reversible", InputSize: 100, OutputSize: 80, Duration: time.Second},
		{Path: "/photos/b/2.png", Outcome: "failed", Mode: "lossless", Error: "[encode] exit status 1"},
	}
	for _, rec := range records {
		if err := m.RecordFile(s.ID, rec); err != nil {
			t.Fatalf("写入文件记录失败: %v", err)
		}
	}
	if err := m.FinishSession(s.ID, Summary{Total: 2, Success: 1, Failed: 1, BytesInput: 100, BytesOutput: 80}, true); err != nil {
		t.Fatalf("结束会话失败: %v", err)
	}

	last, err := m.LastSession()
	if err != nil {
		t.Fatalf("读取会话失败: %v", err)
	}
	if last.ID != s.ID || last.Root != "/photos/b" || last.Options["threads"] != "4" {
		t.Errorf("会话不符: %+v", last)
	}
	if !last.Interrupted || last.EndTime.IsZero() || last.Summary == nil || last.Summary.Failed != 1 {
		t.Errorf("汇总不符: %+v", last)
	}

	files, err := m.ListFiles(s.ID)
	if err != nil {
		t.Fatalf("读取文件记录失败: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("期望 2 条记录, 实际 %d", len(files))
	}
	// bbolt 按键排序
	if files[0].Path != "/photos/b/1.jpg" || files[0].Timestamp.IsZero() || files[0].Duration != time.Second {
		t.Errorf("记录不符: %+v", files[0])
	}
	if files[1].Error == "" {
		t.Error("失败记录应包含错误")
	}
}

func TestRecordFileUnknownSession(t *testing.T) {
	m := openTestManager(t)
	if err := m.RecordFile("nope", FileRecord{Path: "/a.jpg"}); err == nil {
		t.Error("未知会话应返回错误")
	}
}

// TestReopenKeepsData 重新打开数据库后数据仍在
func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	m, err := NewManager(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	s, err := m.BeginSession("/x", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	m, err = NewManager(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	last, err := m.LastSession()
	if err != nil || last.ID != s.ID {
		t.Errorf("重新打开后应读到会话 %s, 实际 %+v %v", s.ID, last, err)
	}
}
