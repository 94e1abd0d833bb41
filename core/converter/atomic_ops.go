package converter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"
)

// CommitResult 提交结果。源文件删除失败不影响转换成功。
type CommitResult struct {
	FinalPath       string
	SourceRemoved   bool
	SourceDeleteErr error
}

// AtomicFileOperations 临时文件到最终路径的原子替换
type AtomicFileOperations struct {
	logger       *zap.Logger
	errorHandler *ErrorHandler
}

// NewAtomicFileOperations 创建原子操作实例
func NewAtomicFileOperations(logger *zap.Logger, errorHandler *ErrorHandler) *AtomicFileOperations {
	return &AtomicFileOperations{
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Commit 重命名临时文件到最终路径，成功后才删除源文件。
// 重命名失败时删除临时文件，源文件保持不变。
// 最终路径已被其他文件占用时不覆盖。
func (afo *AtomicFileOperations) Commit(tempPath, finalPath, sourcePath string) (CommitResult, error) {
	result := CommitResult{FinalPath: finalPath}

	samePath := filepath.Clean(sourcePath) == filepath.Clean(finalPath)
	if !samePath {
		if _, err := os.Lstat(finalPath); err == nil {
			afo.RemoveTemp(tempPath)
			return result, fmt.Errorf("%w: %s", ErrOutputExists, finalPath)
		}
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		if rmErr := os.Remove(tempPath); rmErr != nil && !os.IsNotExist(rmErr) {
			afo.logger.Warn("清理临时文件失败", zap.String("temp_path", tempPath), zap.Error(rmErr))
		}
		return result, afo.errorHandler.WrapError("原子重命名", err, tempPath)
	}

	dir := filepath.Dir(finalPath)
	if err := syncDir(dir); err != nil {
		afo.logger.Warn("无法同步目录", zap.String("directory", dir), zap.Error(err))
	}

	if err := afo.verifyFileReplacement(finalPath); err != nil {
		// 新文件不可信，保留源文件
		if !samePath {
			afo.RemoveTemp(finalPath)
		}
		return result, err
	}

	// 输出路径与源文件相同时源文件已被替换
	if samePath {
		return result, nil
	}

	if err := os.Remove(sourcePath); err != nil {
		result.SourceDeleteErr = err
		afo.logger.Warn("删除原始文件失败", zap.String("source", sourcePath), zap.Error(err))
		return result, nil
	}
	result.SourceRemoved = true
	return result, nil
}

// verifyFileReplacement 新文件必须存在且非空
func (afo *AtomicFileOperations) verifyFileReplacement(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return afo.errorHandler.WrapError("验证新文件", err, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("新文件大小为0: %s", path)
	}
	return nil
}

// RemoveTemp 删除临时输出，不存在时忽略
func (afo *AtomicFileOperations) RemoveTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		afo.logger.Warn("清理临时文件失败", zap.String("temp_path", path), zap.Error(err))
	}
}

// CheckDiskSpace 检查目录所在分区剩余空间
func (afo *AtomicFileOperations) CheckDiskSpace(dir string, required int64) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		afo.logger.Warn("无法获取磁盘使用情况", zap.String("directory", dir), zap.Error(err))
		return nil
	}
	if required > 0 && usage.Free < uint64(required) {
		return fmt.Errorf("%w: 需要 %d 字节，剩余 %d 字节", ErrInsufficientDisk, required, usage.Free)
	}
	return nil
}

// syncDir 同步目录元数据到磁盘
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
