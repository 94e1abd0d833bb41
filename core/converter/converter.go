package converter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"static2jxl/config"
	"static2jxl/core/state"

	"go.uber.org/zap"
)

// Options 一次运行的全部参数
type Options struct {
	InPlace         bool
	SkipHealthCheck bool
	Recursive       bool
	ForceLossless   bool
	DryRun          bool
	VerifyMetadata  bool
	Threads         int
	Effort          int
	Distance        float64
	EncoderThreads  int
	MinLosslessSize int64
	MaxFiles        int

	CheckDiskSpace       bool
	ProtectHome          bool
	ForbiddenDirectories []string

	CjxlPath        string
	DjxlPath        string
	ExiftoolPath    string
	GetFileInfoPath string
	SetFilePath     string
}

// OptionsFromConfig 从配置构造运行参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InPlace:              cfg.Conversion.InPlace,
		SkipHealthCheck:      cfg.Conversion.SkipHealthCheck,
		Recursive:            cfg.Conversion.Recursive,
		ForceLossless:        cfg.Conversion.ForceLossless,
		DryRun:               cfg.Conversion.DryRun,
		VerifyMetadata:       cfg.Conversion.VerifyMetadata,
		Threads:              cfg.Concurrency.Threads,
		Effort:               cfg.Conversion.Effort,
		Distance:             cfg.Conversion.Distance,
		EncoderThreads:       cfg.Tools.EncoderThreads,
		MinLosslessSize:      cfg.Conversion.MinLosslessSize,
		MaxFiles:             cfg.Security.MaxFiles,
		CheckDiskSpace:       cfg.Security.CheckDiskSpace,
		ProtectHome:          cfg.Security.ProtectHome,
		ForbiddenDirectories: cfg.Security.ForbiddenDirectories,
		CjxlPath:             cfg.Tools.CjxlPath,
		DjxlPath:             cfg.Tools.DjxlPath,
		ExiftoolPath:         cfg.Tools.ExiftoolPath,
		GetFileInfoPath:      cfg.Tools.GetFileInfoPath,
		SetFilePath:          cfg.Tools.SetFilePath,
	}
}

// Summary 运行结果
type Summary struct {
	Root        string
	SessionID   string
	DryRun      bool
	Interrupted bool
	Entries     []FileEntry
	Stats       StatsSnapshot
}

// Failed 失败文件数
func (s *Summary) Failed() int {
	return s.Stats.Failed
}

// ConverterOption 可选依赖注入
type ConverterOption func(*Converter)

// WithEncoder 替换编码器
func WithEncoder(e Encoder) ConverterOption {
	return func(c *Converter) { c.encoder = e }
}

// WithValidator 替换解码校验器
func WithValidator(v Validator) ConverterOption {
	return func(c *Converter) { c.validator = v }
}

// WithMetadataCopier 替换元数据复制器
func WithMetadataCopier(m MetadataCopier) ConverterOption {
	return func(c *Converter) { c.copier = m }
}

// WithTagCounter 替换标签计数器
func WithTagCounter(t TagCounter) ConverterOption {
	return func(c *Converter) { c.counter = t }
}

// WithAttributeCopier 替换平台属性复制器
func WithAttributeCopier(a AttributeCopier) ConverterOption {
	return func(c *Converter) { c.attrs = a }
}

// WithObserver 注册结果观察者
func WithObserver(o Observer) ConverterOption {
	return func(c *Converter) { c.observers = append(c.observers, o) }
}

// WithProgress 设置进度回调
func WithProgress(p ProgressFunc) ConverterOption {
	return func(c *Converter) { c.progress = p }
}

// ConfirmFunc 原地替换前的确认回调
type ConfirmFunc func(root string, entries []FileEntry) (bool, error)

// WithConfirm 设置原地替换确认
func WithConfirm(f ConfirmFunc) ConverterOption {
	return func(c *Converter) { c.confirm = f }
}

// WithJournal 写入运行日志
func WithJournal(j *state.Manager) ConverterOption {
	return func(c *Converter) { c.journal = j }
}

// Converter 转换器主结构
type Converter struct {
	logger    *zap.Logger
	opts      Options
	stats     *ConversionStats
	atomicOps *AtomicFileOperations

	encoder   Encoder
	validator Validator
	copier    MetadataCopier
	counter   TagCounter
	attrs     AttributeCopier

	observers []Observer
	progress  ProgressFunc
	confirm   ConfirmFunc
	journal   *state.Manager
}

// NewConverter 创建新的转换器实例，未注入的依赖使用外部工具
func NewConverter(logger *zap.Logger, opts Options, options ...ConverterOption) *Converter {
	tools := NewToolManager(logger)
	exiftool := NewExiftoolCopier(tools, opts.ExiftoolPath)

	c := &Converter{
		logger:    logger,
		opts:      opts,
		stats:     NewConversionStats(),
		atomicOps: NewAtomicFileOperations(logger, NewErrorHandler(logger)),
		encoder:   NewCjxlEncoder(tools, opts.CjxlPath),
		validator: NewDjxlValidator(tools, opts.DjxlPath),
		copier:    exiftool,
		counter:   fallbackCounter{exiftool, ExifTagCounter{}},
		attrs:     NewPlatformAttributes(logger, tools, opts.GetFileInfoPath, opts.SetFilePath),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Stats 共享统计
func (c *Converter) Stats() *ConversionStats {
	return c.stats
}

// Run 收集并转换 root 下的文件
func (c *Converter) Run(ctx context.Context, root string) (*Summary, error) {
	root, err := GlobalPathUtils.NormalizePath(root)
	if err != nil {
		return nil, fmt.Errorf("路径规范化失败: %w", err)
	}
	summary := &Summary{Root: root, DryRun: c.opts.DryRun}

	if c.opts.InPlace && !c.opts.DryRun {
		checker := NewPathSecurityChecker(c.logger, c.opts.ForbiddenDirectories, c.opts.ProtectHome)
		if err := checker.CheckInPlaceTarget(root); err != nil {
			return nil, err
		}
	}

	if c.opts.Distance > 0 {
		c.logger.Warn("已指定 distance，无损源格式的输出不再是数学无损",
			zap.Float64("distance", c.opts.Distance))
	}

	collector := NewCollector(c.logger, c.stats, CollectorOptions{
		Recursive: c.opts.Recursive,
		MaxFiles:  c.opts.MaxFiles,
		Policy: Policy{
			MinLosslessSize: c.opts.MinLosslessSize,
			ForceLossless:   c.opts.ForceLossless,
		},
	})
	entries, err := collector.Collect(ctx, root)
	summary.Entries = entries
	if err != nil {
		summary.Stats = c.stats.Snapshot()
		if errors.Is(err, context.Canceled) {
			summary.Interrupted = true
			return summary, nil
		}
		return summary, fmt.Errorf("收集文件失败: %w", err)
	}
	c.logger.Info("文件收集完成", zap.Int("files", len(entries)))

	if c.opts.DryRun || len(entries) == 0 {
		summary.Stats = c.stats.Snapshot()
		return summary, nil
	}

	if c.opts.InPlace && c.confirm != nil {
		ok, err := c.confirm(root, entries)
		if err != nil {
			return summary, err
		}
		if !ok {
			summary.Stats = c.stats.Snapshot()
			return summary, ErrAborted
		}
	}

	if c.opts.CheckDiskSpace {
		if err := c.atomicOps.CheckDiskSpace(root, c.requiredSpace(entries)); err != nil {
			return summary, err
		}
	}

	if c.journal != nil {
		session, err := c.journal.BeginSession(root, c.sessionOptions())
		if err != nil {
			c.logger.Warn("运行记录创建失败", zap.Error(err))
		} else {
			summary.SessionID = session.ID
		}
	}

	pipeline := c.newPipeline(summary.SessionID)
	pool := NewWorkerPool(c.logger, c.stats, c.opts.Threads, c.progress)
	runErr := pool.Run(ctx, entries, func(ctx context.Context, entry FileEntry) {
		pipeline.Process(ctx, entry)
	})
	summary.Interrupted = errors.Is(runErr, context.Canceled)
	summary.Stats = c.stats.Snapshot()

	if c.journal != nil && summary.SessionID != "" {
		s := summary.Stats
		err := c.journal.FinishSession(summary.SessionID, state.Summary{
			Total:       s.Total,
			Success:     s.Success,
			Failed:      s.Failed,
			Skipped:     s.Skipped,
			BytesInput:  s.BytesInput,
			BytesOutput: s.BytesOutput,
		}, summary.Interrupted)
		if err != nil {
			c.logger.Warn("运行记录写入失败", zap.Error(err))
		}
	}

	return summary, nil
}

func (c *Converter) newPipeline(sessionID string) *Pipeline {
	metadata := NewMetadataManager(c.logger, c.copier, c.attrs, c.counter, c.opts.VerifyMetadata)
	pipeline := NewPipeline(c.logger, c.stats, c.encoder, c.validator, metadata, PipelineOptions{
		InPlace:         c.opts.InPlace,
		SkipHealthCheck: c.opts.SkipHealthCheck,
		Params: EncodeParams{
			Effort:   c.opts.Effort,
			Distance: c.opts.Distance,
			Threads:  c.opts.EncoderThreads,
		},
	})
	for _, o := range c.observers {
		pipeline.AddObserver(o)
	}
	if c.journal != nil && sessionID != "" {
		pipeline.AddObserver(&journalObserver{logger: c.logger, journal: c.journal, sessionID: sessionID})
	}
	return pipeline
}

// requiredSpace 最坏情况下每个工作协程同时持有一个最大文件大小的临时输出
func (c *Converter) requiredSpace(entries []FileEntry) int64 {
	var largest int64
	for _, e := range entries {
		if e.Size > largest {
			largest = e.Size
		}
	}
	workers := c.opts.Threads
	if workers < 1 {
		workers = 1
	}
	if workers > len(entries) {
		workers = len(entries)
	}
	return largest * int64(workers)
}

func (c *Converter) sessionOptions() map[string]string {
	return map[string]string{
		"in_place":       strconv.FormatBool(c.opts.InPlace),
		"force_lossless": strconv.FormatBool(c.opts.ForceLossless),
		"recursive":      strconv.FormatBool(c.opts.Recursive),
		"threads":        strconv.Itoa(c.opts.Threads),
		"effort":         strconv.Itoa(c.opts.Effort),
		"distance":       strconv.FormatFloat(c.opts.Distance, 'f', -1, 64),
	}
}

// journalObserver 将每个结果写入运行日志
type journalObserver struct {
	logger    *zap.Logger
	journal   *state.Manager
	sessionID string
}

func (j *journalObserver) ObserveResult(r *Result) {
	rec := state.FileRecord{
		Path:       r.Input,
		Output:     r.Output,
		Outcome:    string(r.Outcome),
		Mode:       string(r.Mode),
		InputSize:  r.InputSize,
		OutputSize: r.OutputSize,
		Duration:   r.Duration,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if err := j.journal.RecordFile(j.sessionID, rec); err != nil {
		j.logger.Warn("运行记录写入失败", zap.String("file", r.Input), zap.Error(err))
	}
}
