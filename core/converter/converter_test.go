package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"static2jxl/core/state"

	"go.uber.org/zap"
)

func testOptions() Options {
	return Options{
		Recursive:       true,
		Threads:         2,
		Effort:          7,
		Distance:        -1,
		MinLosslessSize: 1024,
		MaxFiles:        100,
	}
}

func newTestConverter(opts Options, encoder Encoder, extra ...ConverterOption) *Converter {
	options := append([]ConverterOption{
		WithEncoder(encoder),
		WithValidator(fakeValidator{}),
		WithMetadataCopier(&fakeCopier{}),
		WithAttributeCopier(&fakeAttrs{}),
	}, extra...)
	return NewConverter(zap.NewNop(), opts, options...)
}

func populate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.jpg"), jpegHeader(), 4096)
	writeSized(t, filepath.Join(root, "b.png"), pngHeader(), 8192)
	writeSized(t, filepath.Join(root, "sub", "c.bmp"), []byte{'B', 'M'}, 2048)
	writeSized(t, filepath.Join(root, "tiny.png"), pngHeader(), 100)
	writeSized(t, filepath.Join(root, "notes.txt"), []byte("hello"), 10)
	return root
}

func TestConverterRun(t *testing.T) {
	root := populate(t)
	collector := &resultCollector{}
	conv := newTestConverter(testOptions(), &fakeEncoder{ratio: 0.5}, WithObserver(collector))

	summary, err := conv.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}
	s := summary.Stats
	if s.Total != 3 || s.Success != 3 || s.Failed != 0 {
		t.Errorf("统计不符: %+v", s)
	}
	if s.SkipReasons[ReasonBelowSizeThreshold] != 1 || s.SkipReasons[ReasonUnsupportedOrUnknown] != 1 {
		t.Errorf("跳过原因不符: %v", s.SkipReasons)
	}
	if len(collector.results) != 3 {
		t.Errorf("观察者应收到 3 个结果, 实际 %d", len(collector.results))
	}
	for _, name := range []string{"a.jpg", "b.png", filepath.Join("sub", "c.bmp")} {
		if !exists(filepath.Join(root, name)) {
			t.Errorf("非原地模式应保留 %s", name)
		}
	}
	if summary.Failed() != 0 {
		t.Error("不应有失败")
	}
}

func TestConverterDryRun(t *testing.T) {
	root := populate(t)
	encoder := &fakeEncoder{ratio: 0.5}
	opts := testOptions()
	opts.DryRun = true

	summary, err := newTestConverter(opts, encoder).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}
	if len(summary.Entries) != 3 {
		t.Errorf("期望列出 3 个文件, 实际 %d", len(summary.Entries))
	}
	if encoder.calls.Load() != 0 {
		t.Error("预演模式不应编码")
	}
	if exists(filepath.Join(root, "a.jxl")) {
		t.Error("预演模式不应产生输出")
	}
}

func TestConverterFailuresCounted(t *testing.T) {
	root := populate(t)
	summary, err := newTestConverter(testOptions(), &fakeEncoder{err: errors.New("boom")}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("单文件失败不应中止运行: %v", err)
	}
	if summary.Failed() != 3 {
		t.Errorf("期望 3 个失败, 实际 %d", summary.Failed())
	}
}

func TestConverterInPlaceForbidden(t *testing.T) {
	root := populate(t)
	opts := testOptions()
	opts.InPlace = true
	opts.ForbiddenDirectories = []string{root}

	_, err := newTestConverter(opts, &fakeEncoder{ratio: 0.5}).Run(context.Background(), root)
	if !errors.Is(err, ErrForbiddenDirectory) {
		t.Errorf("期望 ErrForbiddenDirectory, 实际 %v", err)
	}
}

func TestConverterInPlaceConfirm(t *testing.T) {
	root := populate(t)
	opts := testOptions()
	opts.InPlace = true

	var asked int
	decline := WithConfirm(func(_ string, entries []FileEntry) (bool, error) {
		asked = len(entries)
		return false, nil
	})
	_, err := newTestConverter(opts, &fakeEncoder{ratio: 0.5}, decline).Run(context.Background(), root)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("期望 ErrAborted, 实际 %v", err)
	}
	if asked != 3 {
		t.Errorf("确认时应看到 3 个文件, 实际 %d", asked)
	}
	if !exists(filepath.Join(root, "a.jpg")) || exists(filepath.Join(root, "a.jxl")) {
		t.Error("拒绝后不应修改任何文件")
	}

	accept := WithConfirm(func(string, []FileEntry) (bool, error) { return true, nil })
	summary, err := newTestConverter(opts, &fakeEncoder{ratio: 0.5}, accept).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}
	if summary.Stats.Success != 3 || exists(filepath.Join(root, "a.jpg")) {
		t.Errorf("原地模式应替换源文件: %+v", summary.Stats)
	}
}

func TestConverterCanceled(t *testing.T) {
	root := populate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestConverter(testOptions(), &fakeEncoder{ratio: 0.5}).Run(ctx, root)
	if err != nil {
		t.Fatalf("取消不应返回错误: %v", err)
	}
	if !summary.Interrupted {
		t.Error("应标记为中断")
	}
}

func TestConverterJournal(t *testing.T) {
	root := populate(t)
	journal, err := state.NewManager(filepath.Join(t.TempDir(), "journal.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("打开运行记录失败: %v", err)
	}
	defer journal.Close()

	summary, err := newTestConverter(testOptions(), &fakeEncoder{ratio: 0.5}, WithJournal(journal)).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	session, err := journal.LastSession()
	if err != nil {
		t.Fatalf("读取会话失败: %v", err)
	}
	if session.ID != summary.SessionID || session.Summary == nil || session.Summary.Success != 3 {
		t.Errorf("会话不符: %+v", session)
	}
	files, err := journal.ListFiles(session.ID)
	if err != nil || len(files) != 3 {
		t.Errorf("期望 3 条文件记录, 实际 %d (%v)", len(files), err)
	}
}

func TestReportJSON(t *testing.T) {
	root := populate(t)
	summary, err := newTestConverter(testOptions(), &fakeEncoder{ratio: 0.5}).Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := NewReport(summary).WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("报告不是有效JSON: %v", err)
	}
	if decoded["reduction_percent"].(float64) != 50 {
		t.Errorf("缩减比例不符: %v", decoded["reduction_percent"])
	}
}

// TestConverterInPlaceOutputConflict a.png 与 a.jpg 同时存在时原地模式不丢图
func TestConverterInPlaceOutputConflict(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.png"), pngHeader(), 8192)
	writeSized(t, filepath.Join(root, "a.jpg"), jpegHeader(), 4096)
	opts := testOptions()
	opts.InPlace = true
	opts.Threads = 1

	summary, err := newTestConverter(opts, &fakeEncoder{ratio: 0.5}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}
	s := summary.Stats
	if s.Success != 1 || s.Failed != 0 || s.SkipReasons[ReasonOutputConflict] != 1 {
		t.Errorf("统计不符: %+v", s)
	}
	if !exists(filepath.Join(root, "a.jxl")) {
		t.Error("应生成 a.jxl")
	}
	kept := 0
	for _, name := range []string{"a.png", "a.jpg"} {
		if exists(filepath.Join(root, name)) {
			kept++
		}
	}
	if kept != 1 {
		t.Errorf("冲突的源文件应保留, 实际剩余 %d 个", kept)
	}
}
