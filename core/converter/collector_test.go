package converter

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.uber.org/zap"
)

// writeSized 写入指定头部并用零填充到 size 字节
func writeSized(t *testing.T, path string, header []byte, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	data := make([]byte, size)
	copy(data, header)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}
}

func jpegHeader() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
}

func collect(t *testing.T, root string, opts CollectorOptions) ([]FileEntry, *ConversionStats) {
	t.Helper()
	stats := NewConversionStats()
	entries, err := NewCollector(zap.NewNop(), stats, opts).Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("收集失败: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, stats
}

// TestCollectMixedDirectory 混合目录只收集符合条件的文件
func TestCollectMixedDirectory(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "big.png"), pngHeader(), 3*1024*1024)
	writeSized(t, filepath.Join(root, "small.png"), pngHeader(), 500*1024)
	writeSized(t, filepath.Join(root, "photo.jpg"), jpegHeader(), 4096)
	writeSized(t, filepath.Join(root, "raw.dng"), buildTiff(binary.LittleEndian, []tiffTag{{259, 1}}), 4096)
	writeSized(t, filepath.Join(root, "lossy.tif"), buildTiff(binary.LittleEndian, []tiffTag{{259, 7}}), 3*1024*1024)

	entries, stats := collect(t, root, CollectorOptions{Recursive: true, Policy: DefaultPolicy()})

	if len(entries) != 2 {
		t.Fatalf("期望收集 2 个文件, 实际 %d: %+v", len(entries), entries)
	}
	if filepath.Base(entries[0].Path) != "big.png" || entries[0].Mode() != ModeLossless {
		t.Errorf("big.png 应为无损转换, 实际 %+v", entries[0])
	}
	if filepath.Base(entries[1].Path) != "photo.jpg" || entries[1].Mode() != ModeReversible {
		t.Errorf("photo.jpg 应为可逆转换, 实际 %+v", entries[1])
	}

	snap := stats.Snapshot()
	if snap.Total != 2 {
		t.Errorf("总数期望 2, 实际 %d", snap.Total)
	}
	want := map[SkipReason]int{
		ReasonBelowSizeThreshold: 1,
		ReasonRawFormat:          1,
		ReasonLossyTiff:          1,
	}
	for reason, n := range want {
		if snap.SkipReasons[reason] != n {
			t.Errorf("跳过原因 %s 期望 %d, 实际 %d", reason, n, snap.SkipReasons[reason])
		}
	}
	if snap.Collected[FileTypePNG] != 1 || snap.Collected[FileTypeJPEG] != 1 {
		t.Errorf("按类型计数不符: %v", snap.Collected)
	}
}

func TestCollectSkipsHiddenAndSymlinks(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, ".hidden.jpg"), jpegHeader(), 64)
	writeSized(t, filepath.Join(root, ".cache", "inner.jpg"), jpegHeader(), 64)
	writeSized(t, filepath.Join(root, "visible.jpg"), jpegHeader(), 64)
	if err := os.Symlink(filepath.Join(root, "visible.jpg"), filepath.Join(root, "link.jpg")); err != nil {
		t.Skipf("无法创建符号链接: %v", err)
	}

	entries, _ := collect(t, root, CollectorOptions{Recursive: true})
	if len(entries) != 1 || filepath.Base(entries[0].Path) != "visible.jpg" {
		t.Errorf("只应收集 visible.jpg, 实际 %+v", entries)
	}
}

func TestCollectRecursion(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "top.jpg"), jpegHeader(), 64)
	writeSized(t, filepath.Join(root, "sub", "deep", "nested.jpg"), jpegHeader(), 64)

	entries, _ := collect(t, root, CollectorOptions{Recursive: true})
	if len(entries) != 2 {
		t.Errorf("递归模式期望 2 个文件, 实际 %d", len(entries))
	}

	entries, _ = collect(t, root, CollectorOptions{Recursive: false})
	if len(entries) != 1 || filepath.Base(entries[0].Path) != "top.jpg" {
		t.Errorf("非递归模式只应收集顶层文件, 实际 %+v", entries)
	}
}

func TestCollectMaxFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		writeSized(t, filepath.Join(root, name), jpegHeader(), 64)
	}

	entries, stats := collect(t, root, CollectorOptions{Recursive: true, MaxFiles: 3})
	if len(entries) != 3 {
		t.Errorf("期望在上限处截断为 3, 实际 %d", len(entries))
	}
	if !stats.Snapshot().TruncatedCollect {
		t.Error("应标记为截断")
	}
}

func TestCollectCanceled(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.jpg"), jpegHeader(), 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(zap.NewNop(), NewConversionStats(), CollectorOptions{Recursive: true}).Collect(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled, 实际 %v", err)
	}
}

func TestCollectNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.jpg")
	writeSized(t, path, jpegHeader(), 64)

	if _, err := NewCollector(zap.NewNop(), NewConversionStats(), CollectorOptions{}).Collect(context.Background(), path); err == nil {
		t.Error("文件路径应返回错误")
	}
}

// TestCollectOutputConflict 映射到同一个 .jxl 的文件只保留一个
func TestCollectOutputConflict(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.png"), pngHeader(), 8192)
	writeSized(t, filepath.Join(root, "a.jpg"), jpegHeader(), 4096)
	writeSized(t, filepath.Join(root, "b.jpg"), jpegHeader(), 4096)

	entries, stats := collect(t, root, CollectorOptions{Recursive: true, Policy: Policy{MinLosslessSize: 1024}})

	if len(entries) != 2 {
		t.Fatalf("期望收集 2 个文件, 实际 %d: %+v", len(entries), entries)
	}
	outputs := make(map[string]bool)
	for _, e := range entries {
		out := OutputPathFor(e.Path)
		if outputs[out] {
			t.Errorf("输出路径重复: %s", out)
		}
		outputs[out] = true
	}
	snap := stats.Snapshot()
	if snap.SkipReasons[ReasonOutputConflict] != 1 {
		t.Errorf("冲突计数期望 1, 实际 %d", snap.SkipReasons[ReasonOutputConflict])
	}
	if snap.Total != 2 {
		t.Errorf("总数期望 2, 实际 %d", snap.Total)
	}
}
