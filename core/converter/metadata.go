package converter

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// MinPreservedPercent 低于该比例时提示元数据可能丢失
const MinPreservedPercent = 70.0

// MetadataReport 单文件元数据迁移结果
type MetadataReport struct {
	XattrErr        error
	TagsErr         error
	TimestampErr    error
	CreationTimeErr error

	Verified  bool
	Preserved float64
}

// Complete 所有步骤均成功
func (r MetadataReport) Complete() bool {
	return r.XattrErr == nil && r.TagsErr == nil && r.TimestampErr == nil && r.CreationTimeErr == nil
}

// MetadataManager 元数据管理器，按固定顺序迁移
type MetadataManager struct {
	logger  *zap.Logger
	copier  MetadataCopier
	attrs   AttributeCopier
	counter TagCounter
	verify  bool
}

// NewMetadataManager 创建元数据管理器实例，counter 为空时跳过校验
func NewMetadataManager(logger *zap.Logger, copier MetadataCopier, attrs AttributeCopier, counter TagCounter, verify bool) *MetadataManager {
	return &MetadataManager{
		logger:  logger,
		copier:  copier,
		attrs:   attrs,
		counter: counter,
		verify:  verify && counter != nil,
	}
}

// Migrate 顺序: 扩展属性 → 内嵌标签 → 访问/修改时间 → 创建时间。
// exiftool 会重写文件并重置时间戳，创建时间必须最后设置。
func (mm *MetadataManager) Migrate(ctx context.Context, src, dst string) MetadataReport {
	var report MetadataReport

	srcInfo, err := os.Stat(src)
	if err != nil {
		err = fmt.Errorf("读取源文件信息失败: %w", err)
		report.XattrErr, report.TagsErr, report.TimestampErr, report.CreationTimeErr = err, err, err, err
		mm.logger.Warn("元数据迁移失败", zap.String("file", src), zap.Error(err))
		return report
	}

	if mm.attrs != nil {
		if err := mm.attrs.CopyXattrs(src, dst); err != nil {
			report.XattrErr = err
			mm.logger.Warn("扩展属性复制失败", zap.String("file", src), zap.Error(err))
		}
	}

	if mm.copier != nil {
		if err := mm.copier.CopyMetadata(ctx, src, dst); err != nil {
			report.TagsErr = err
			mm.logger.Warn("元数据迁移失败", zap.String("file", src), zap.Error(err))
		}
	}

	if err := mm.PreserveTimestamp(src, dst, srcInfo); err != nil {
		report.TimestampErr = err
		mm.logger.Warn("时间戳恢复失败", zap.String("file", src), zap.Error(err))
	}

	if mm.attrs != nil {
		if err := mm.attrs.CopyCreationTime(ctx, src, dst); err != nil {
			report.CreationTimeErr = err
			mm.logger.Warn("创建时间恢复失败", zap.String("file", src), zap.Error(err))
		}
	}

	if mm.verify {
		report.Preserved, report.Verified = mm.Verify(ctx, src, dst)
	}

	return report
}

// PreserveTimestamp 恢复访问和修改时间
func (mm *MetadataManager) PreserveTimestamp(src, dst string, srcInfo os.FileInfo) error {
	mtime := srcInfo.ModTime()
	atime := accessTime(src, srcInfo)
	if err := os.Chtimes(dst, atime, mtime); err != nil {
		return fmt.Errorf("设置文件时间戳失败: %w", err)
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("验证目标文件信息失败: %w", err)
	}
	diff := dstInfo.ModTime().Unix() - mtime.Unix()
	if diff > 1 || diff < -1 {
		mm.logger.Warn("时间戳精度警告",
			zap.String("target", dst),
			zap.Time("expected", mtime),
			zap.Time("actual", dstInfo.ModTime()))
	}
	return nil
}

// Verify 比较标签数量，仅用于诊断。源文件无标签时视为100%。
func (mm *MetadataManager) Verify(ctx context.Context, src, dst string) (float64, bool) {
	srcCount, err := mm.counter.CountTags(ctx, src)
	if err != nil {
		mm.logger.Debug("统计源文件标签失败", zap.String("file", src), zap.Error(err))
		return 0, false
	}
	dstCount, err := mm.counter.CountTags(ctx, dst)
	if err != nil {
		mm.logger.Debug("统计目标文件标签失败", zap.String("file", dst), zap.Error(err))
		return 0, false
	}

	preserved := PreservedPercent(srcCount, dstCount)
	if preserved < MinPreservedPercent {
		mm.logger.Warn("元数据保留率偏低",
			zap.String("file", src),
			zap.Int("source_tags", srcCount),
			zap.Int("target_tags", dstCount),
			zap.Float64("preserved", preserved))
	}
	return preserved, true
}

// PreservedPercent 标签保留百分比
func PreservedPercent(srcCount, dstCount int) float64 {
	if srcCount <= 0 {
		return 100
	}
	return float64(dstCount) / float64(srcCount) * 100
}
