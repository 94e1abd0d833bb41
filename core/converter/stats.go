package converter

import (
	"sync"
	"time"
)

// ConversionStats 全局共享的转换统计，所有读改写都在同一把锁内完成
type ConversionStats struct {
	mu sync.Mutex

	collected map[FileType]int
	skipped   map[SkipReason]int

	total            int
	processed        int
	success          int
	failed           int
	skippedFiles     int
	skippedLarger    int
	skippedExisting  int
	healthPassed     int
	healthFailed     int
	metadataFull     int
	metadataPartial  int
	deleteWarnings   int
	bytesInput       int64
	bytesOutput      int64
	startTime        time.Time
	truncatedCollect bool
}

// StatsSnapshot 统计快照，所有工作协程结束后读取
type StatsSnapshot struct {
	Collected        map[FileType]int   `json:"collected"`
	SkipReasons      map[SkipReason]int `json:"skip_reasons"`
	Total            int                `json:"total"`
	Processed        int                `json:"processed"`
	Success          int                `json:"success"`
	Failed           int                `json:"failed"`
	Skipped          int                `json:"skipped"`
	SkippedLarger    int                `json:"skipped_larger"`
	SkippedExisting  int                `json:"skipped_existing"`
	HealthPassed     int                `json:"health_passed"`
	HealthFailed     int                `json:"health_failed"`
	MetadataFull     int                `json:"metadata_full"`
	MetadataPartial  int                `json:"metadata_partial"`
	DeleteWarnings   int                `json:"delete_warnings"`
	BytesInput       int64              `json:"bytes_input"`
	BytesOutput      int64              `json:"bytes_output"`
	Elapsed          time.Duration      `json:"elapsed"`
	TruncatedCollect bool               `json:"truncated_collect"`
}

// NewConversionStats 创建统计实例
func NewConversionStats() *ConversionStats {
	return &ConversionStats{
		collected: make(map[FileType]int),
		skipped:   make(map[SkipReason]int),
		startTime: time.Now(),
	}
}

// AddCollected 记录一个进入工作列表的文件
func (s *ConversionStats) AddCollected(ft FileType) {
	s.mu.Lock()
	s.collected[ft]++
	s.total++
	s.mu.Unlock()
}

// AddSkipReason 记录收集阶段被排除的文件
func (s *ConversionStats) AddSkipReason(reason SkipReason) {
	s.mu.Lock()
	s.skipped[reason]++
	s.mu.Unlock()
}

// MarkTruncated 记录收集被上限截断
func (s *ConversionStats) MarkTruncated() {
	s.mu.Lock()
	s.truncatedCollect = true
	s.mu.Unlock()
}

// IncProcessed 处理计数加一并返回新值
func (s *ConversionStats) IncProcessed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	return s.processed
}

// Progress 读取已处理数和总数
func (s *ConversionStats) Progress() (processed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed, s.total
}

// Record 根据单文件结果更新计数
func (s *ConversionStats) Record(r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Outcome {
	case OutcomeSuccess:
		s.success++
		s.bytesInput += r.InputSize
		s.bytesOutput += r.OutputSize
		if r.HealthChecked {
			s.healthPassed++
		}
		if r.Metadata.Complete() {
			s.metadataFull++
		} else {
			s.metadataPartial++
		}
		if r.SourceDeleteErr != nil {
			s.deleteWarnings++
		}
	case OutcomeSkippedExisting:
		s.skippedFiles++
		s.skippedExisting++
	case OutcomeSkippedLarger:
		s.skippedFiles++
		s.skippedLarger++
	case OutcomeFailed:
		s.failed++
		if r.Stage == StageHealth {
			s.healthFailed++
		}
	}
}

// Failed 失败文件数
func (s *ConversionStats) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Snapshot 复制当前统计
func (s *ConversionStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	collected := make(map[FileType]int, len(s.collected))
	for k, v := range s.collected {
		collected[k] = v
	}
	reasons := make(map[SkipReason]int, len(s.skipped))
	for k, v := range s.skipped {
		reasons[k] = v
	}

	return StatsSnapshot{
		Collected:        collected,
		SkipReasons:      reasons,
		Total:            s.total,
		Processed:        s.processed,
		Success:          s.success,
		Failed:           s.failed,
		Skipped:          s.skippedFiles,
		SkippedLarger:    s.skippedLarger,
		SkippedExisting:  s.skippedExisting,
		HealthPassed:     s.healthPassed,
		HealthFailed:     s.healthFailed,
		MetadataFull:     s.metadataFull,
		MetadataPartial:  s.metadataPartial,
		DeleteWarnings:   s.deleteWarnings,
		BytesInput:       s.bytesInput,
		BytesOutput:      s.bytesOutput,
		Elapsed:          time.Since(s.startTime),
		TruncatedCollect: s.truncatedCollect,
	}
}

// ReductionPercent 体积缩减百分比，输入为0时返回0
func ReductionPercent(input, output int64) float64 {
	if input <= 0 {
		return 0
	}
	return (1 - float64(output)/float64(input)) * 100
}

// Reduction 本次运行的整体缩减比例
func (s StatsSnapshot) Reduction() float64 {
	return ReductionPercent(s.BytesInput, s.BytesOutput)
}

// HealthRate 健康检查通过率
func (s StatsSnapshot) HealthRate() float64 {
	checked := s.HealthPassed + s.HealthFailed
	if checked == 0 {
		return 0
	}
	return float64(s.HealthPassed) / float64(checked) * 100
}
