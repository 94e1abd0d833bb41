package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// Outcome 单文件最终状态
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeFailed          Outcome = "failed"
	OutcomeSkippedExisting Outcome = "skipped_existing"
	OutcomeSkippedLarger   Outcome = "skipped_larger"
)

// Result 单文件处理结果
type Result struct {
	Outcome    Outcome
	Input      string
	Output     string
	Type       FileType
	Mode       EncodeMode
	InputSize  int64
	OutputSize int64
	Duration   time.Duration

	Stage Stage
	Err   error

	HealthChecked   bool
	Metadata        MetadataReport
	SourceRemoved   bool
	SourceDeleteErr error
}

// Observer 接收每个文件的处理结果
type Observer interface {
	ObserveResult(r *Result)
}

// PipelineOptions 流水线配置
type PipelineOptions struct {
	InPlace         bool
	SkipHealthCheck bool
	Params          EncodeParams
}

// Pipeline 单文件转换流水线:
// 预检查 → 编码 → 体积回滚 → 健康检查 → 元数据迁移 → 提交 → 统计
type Pipeline struct {
	logger       *zap.Logger
	stats        *ConversionStats
	encoder      Encoder
	validator    Validator
	metadata     *MetadataManager
	atomicOps    *AtomicFileOperations
	errorHandler *ErrorHandler
	opts         PipelineOptions
	observers    []Observer
}

// NewPipeline 创建流水线，validator 和 metadata 可为空
func NewPipeline(logger *zap.Logger, stats *ConversionStats, encoder Encoder, validator Validator, metadata *MetadataManager, opts PipelineOptions) *Pipeline {
	errorHandler := NewErrorHandler(logger)
	return &Pipeline{
		logger:       logger,
		stats:        stats,
		encoder:      encoder,
		validator:    validator,
		metadata:     metadata,
		atomicOps:    NewAtomicFileOperations(logger, errorHandler),
		errorHandler: errorHandler,
		opts:         opts,
	}
}

// AddObserver 注册结果观察者
func (p *Pipeline) AddObserver(o Observer) {
	if o != nil {
		p.observers = append(p.observers, o)
	}
}

// Process 处理一个文件并记录统计。外部工具调用不随 ctx 取消而中断。
func (p *Pipeline) Process(ctx context.Context, entry FileEntry) *Result {
	start := time.Now()
	r := p.runSafe(context.WithoutCancel(ctx), entry)
	r.Duration = time.Since(start)

	p.stats.Record(r)
	for _, o := range p.observers {
		o.ObserveResult(r)
	}
	return r
}

// runSafe panic 转为失败结果，与普通失败走同一条统计路径
func (p *Pipeline) runSafe(ctx context.Context, entry FileEntry) (r *Result) {
	defer func() {
		if v := recover(); v != nil {
			if p.opts.InPlace {
				p.atomicOps.RemoveTemp(TempPathFor(entry.Path))
			}
			r = p.fail(&Result{
				Input:     entry.Path,
				Output:    OutputPathFor(entry.Path),
				Type:      entry.Type,
				Mode:      entry.Mode(),
				InputSize: entry.Size,
			}, StageInternal, fmt.Errorf("panic: %v", v))
		}
	}()
	return p.run(ctx, entry)
}

func (p *Pipeline) run(ctx context.Context, entry FileEntry) *Result {
	finalPath := OutputPathFor(entry.Path)
	r := &Result{
		Input:     entry.Path,
		Output:    finalPath,
		Type:      entry.Type,
		Mode:      entry.Mode(),
		InputSize: entry.Size,
	}

	tempPath := finalPath
	if p.opts.InPlace {
		tempPath = TempPathFor(entry.Path)
	}
	// 原地模式下输出与源文件同名时由提交步骤替换
	if finalPath != entry.Path {
		if _, err := os.Lstat(finalPath); err == nil {
			p.logger.Info("输出文件已存在，跳过", zap.String("output", finalPath))
			r.Outcome = OutcomeSkippedExisting
			return r
		}
	}

	if info, err := os.Stat(entry.Path); err == nil {
		r.InputSize = info.Size()
	}

	// 编码
	if err := p.encoder.Encode(ctx, entry.Path, tempPath, r.Mode, p.opts.Params); err != nil {
		p.atomicOps.RemoveTemp(tempPath)
		return p.fail(r, StageEncode, err)
	}

	// 体积回滚
	outInfo, err := os.Stat(tempPath)
	if err != nil {
		return p.fail(r, StageEncode, fmt.Errorf("编码器未生成输出: %w", err))
	}
	if outInfo.Size() >= r.InputSize {
		p.atomicOps.RemoveTemp(tempPath)
		p.logger.Info("输出不小于原文件，已回滚",
			zap.String("file", entry.Path),
			zap.Int64("input_size", r.InputSize),
			zap.Int64("output_size", outInfo.Size()))
		r.Outcome = OutcomeSkippedLarger
		r.OutputSize = outInfo.Size()
		return r
	}

	// 健康检查
	if !p.opts.SkipHealthCheck {
		if err := p.CheckHealth(ctx, tempPath); err != nil {
			p.atomicOps.RemoveTemp(tempPath)
			return p.fail(r, StageHealth, err)
		}
		r.HealthChecked = true
	}

	// 元数据迁移失败不影响结果
	if p.metadata != nil {
		r.Metadata = p.metadata.Migrate(ctx, entry.Path, tempPath)
	}

	// 提交
	if p.opts.InPlace {
		cr, err := p.atomicOps.Commit(tempPath, finalPath, entry.Path)
		if err != nil {
			return p.fail(r, StageCommit, err)
		}
		r.SourceRemoved = cr.SourceRemoved
		r.SourceDeleteErr = cr.SourceDeleteErr
	}

	// 统计使用最终文件大小
	finalInfo, err := os.Stat(finalPath)
	if err != nil {
		return p.fail(r, StageCommit, err)
	}
	r.OutputSize = finalInfo.Size()
	r.Outcome = OutcomeSuccess

	p.logger.Info("转换成功",
		zap.String("file", entry.Path),
		zap.String("mode", string(r.Mode)),
		zap.Int64("input_size", r.InputSize),
		zap.Int64("output_size", r.OutputSize),
		zap.Float64("reduction", ReductionPercent(r.InputSize, r.OutputSize)))
	return r
}

func (p *Pipeline) fail(r *Result, stage Stage, err error) *Result {
	var se *StageError
	var output []byte
	if errors.As(err, &se) {
		output = se.Output
	}
	r.Outcome = OutcomeFailed
	r.Stage = stage
	r.Err = p.errorHandler.StageFailure(stage, r.Input, err, output)
	return r
}

// CheckHealth 校验JXL签名，djxl 可用时再做完整解码
func (p *Pipeline) CheckHealth(ctx context.Context, path string) error {
	if err := ValidateSignature(path); err != nil {
		return err
	}
	if p.validator == nil || !p.validator.Available() {
		return nil
	}
	return p.validator.Validate(ctx, path)
}

var jxlContainerHeader = []byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' '}

// ValidateSignature 检查JXL裸码流或容器签名
func ValidateSignature(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	header = header[:n]

	if bytes.HasPrefix(header, magicJXLStream) || bytes.HasPrefix(header, jxlContainerHeader) {
		return nil
	}
	return ErrInvalidSignature
}
