package converter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newAtomicOps() *AtomicFileOperations {
	logger := zap.NewNop()
	return NewAtomicFileOperations(logger, NewErrorHandler(logger))
}

func TestCommitReplacesSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.png")
	writeSized(t, source, pngHeader(), 100)
	temp := TempPathFor(source)
	writeSized(t, temp, []byte{0xFF, 0x0A}, 50)

	res, err := newAtomicOps().Commit(temp, OutputPathFor(source), source)
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if !res.SourceRemoved || res.SourceDeleteErr != nil {
		t.Errorf("源文件应被删除: %+v", res)
	}
	if exists(source) || exists(temp) || !exists(OutputPathFor(source)) {
		t.Error("提交后只应留下最终文件")
	}
}

// TestCommitRenameFailureKeepsSource 重命名失败时源文件不动
func TestCommitRenameFailureKeepsSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.png")
	writeSized(t, source, pngHeader(), 100)

	_, err := newAtomicOps().Commit(filepath.Join(dir, "missing.tmp"), OutputPathFor(source), source)
	if err == nil {
		t.Fatal("临时文件不存在时应返回错误")
	}
	if !exists(source) {
		t.Error("源文件不应被删除")
	}
}

// TestCommitEmptyOutputKeepsSource 空输出不能替换源文件
func TestCommitEmptyOutputKeepsSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.png")
	writeSized(t, source, pngHeader(), 100)
	temp := TempPathFor(source)
	if err := os.WriteFile(temp, nil, 0644); err != nil {
		t.Fatal(err)
	}

	final := OutputPathFor(source)
	if _, err := newAtomicOps().Commit(temp, final, source); err == nil {
		t.Fatal("空输出应返回错误")
	}
	if !exists(source) {
		t.Error("源文件不应被删除")
	}
	if exists(final) {
		t.Error("无效的最终文件应被删除")
	}
}

// TestCommitRefusesExistingOutput 最终路径被其他文件占用时不覆盖也不删源
func TestCommitRefusesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.png")
	writeSized(t, source, pngHeader(), 100)
	final := OutputPathFor(source)
	writeSized(t, final, []byte{0xFF, 0x0A}, 30)
	temp := TempPathFor(source)
	writeSized(t, temp, []byte{0xFF, 0x0A}, 50)

	_, err := newAtomicOps().Commit(temp, final, source)
	if !errors.Is(err, ErrOutputExists) {
		t.Fatalf("期望 ErrOutputExists, 实际 %v", err)
	}
	if !exists(source) || exists(temp) {
		t.Error("应保留源文件并清理临时文件")
	}
	if info, err := os.Stat(final); err != nil || info.Size() != 30 {
		t.Errorf("已存在的文件不应被覆盖: %v", err)
	}
}

// TestCommitSamePathNeverDeletes 输出与源相同路径时不删除
func TestCommitSamePathNeverDeletes(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.jxl")
	writeSized(t, source, []byte{0xFF, 0x0A}, 100)
	temp := TempPathFor(source)
	writeSized(t, temp, []byte{0xFF, 0x0A}, 50)

	res, err := newAtomicOps().Commit(temp, source, source)
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if res.SourceRemoved {
		t.Error("相同路径不应报告源文件已删除")
	}
	info, err := os.Stat(source)
	if err != nil || info.Size() != 50 {
		t.Errorf("最终文件应为新输出: %v %v", info, err)
	}
}

func TestRemoveTempMissing(t *testing.T) {
	// 不存在的文件静默忽略
	newAtomicOps().RemoveTemp(filepath.Join(t.TempDir(), "nothing.tmp"))
}

func TestCheckDiskSpace(t *testing.T) {
	ops := newAtomicOps()
	dir := t.TempDir()
	if err := ops.CheckDiskSpace(dir, 1); err != nil {
		t.Errorf("1 字节应足够: %v", err)
	}
	err := ops.CheckDiskSpace(dir, 1<<62)
	if err != nil && !errors.Is(err, ErrInsufficientDisk) {
		t.Errorf("期望 ErrInsufficientDisk, 实际 %v", err)
	}
}
