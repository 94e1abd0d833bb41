package converter

// DefaultMinLosslessSize 无损转换的最小文件大小 (2 MiB，含边界)
const DefaultMinLosslessSize int64 = 2 * 1024 * 1024

// Action 处理决策
type Action string

const (
	ActionSkip              Action = "skip"
	ActionConvertReversible Action = "reversible"
	ActionConvertLossless   Action = "lossless"
)

// SkipReason 跳过原因
type SkipReason string

const (
	ReasonNone                 SkipReason = ""
	ReasonRawFormat            SkipReason = "raw"
	ReasonUnsupportedOrUnknown SkipReason = "unsupported"
	ReasonAlreadyTargetFormat  SkipReason = "already_jxl"
	ReasonLossyTiff            SkipReason = "tiff_jpeg"
	ReasonBelowSizeThreshold   SkipReason = "small"
	// ReasonOutputConflict 与已收集的文件映射到同一个 .jxl
	ReasonOutputConflict SkipReason = "output_conflict"
)

// Decision 资格判定结果
type Decision struct {
	Action Action
	Reason SkipReason
}

// Skip 是否跳过
func (d Decision) Skip() bool {
	return d.Action == ActionSkip
}

func skip(reason SkipReason) Decision {
	return Decision{Action: ActionSkip, Reason: reason}
}

// Policy 资格判定策略
type Policy struct {
	MinLosslessSize int64
	ForceLossless   bool
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{MinLosslessSize: DefaultMinLosslessSize}
}

// Decide 使用默认阈值判定
func Decide(ft FileType, compression TiffCompression, size int64, forceLossless bool) Decision {
	p := DefaultPolicy()
	p.ForceLossless = forceLossless
	return p.Decide(ft, compression, size)
}

// Decide 按规则顺序判定，compression 仅对TIFF有意义
func (p Policy) Decide(ft FileType, compression TiffCompression, size int64) Decision {
	switch ft {
	case FileTypeRAW:
		return skip(ReasonRawFormat)
	case FileTypeAlreadyTarget:
		return skip(ReasonAlreadyTargetFormat)
	case FileTypeUnknown:
		return skip(ReasonUnsupportedOrUnknown)
	}

	if ft == FileTypeTIFF && (compression == CompressionJPEG || compression == CompressionUnknown) {
		return skip(ReasonLossyTiff)
	}

	// JPEG不受大小阈值限制
	if ft == FileTypeJPEG {
		return Decision{Action: ActionConvertReversible}
	}

	if ft.IsLosslessSource() {
		if p.ForceLossless || size >= p.threshold() {
			return Decision{Action: ActionConvertLossless}
		}
		return skip(ReasonBelowSizeThreshold)
	}

	return skip(ReasonUnsupportedOrUnknown)
}

func (p Policy) threshold() int64 {
	if p.MinLosslessSize <= 0 {
		return DefaultMinLosslessSize
	}
	return p.MinLosslessSize
}
