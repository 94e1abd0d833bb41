package ui

import (
	"io"
	"sort"
	"time"

	"static2jxl/core/converter"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

var skipReasonLabels = map[converter.SkipReason]string{
	converter.ReasonRawFormat:            "RAW 格式",
	converter.ReasonUnsupportedOrUnknown: "不支持或未知格式",
	converter.ReasonAlreadyTargetFormat:  "已是 JXL",
	converter.ReasonLossyTiff:            "JPEG 压缩的 TIFF",
	converter.ReasonBelowSizeThreshold:   "低于无损最小尺寸",
	converter.ReasonOutputConflict:       "输出路径冲突",
}

// PrintSummary 输出转换统计
func PrintSummary(w io.Writer, summary *converter.Summary) {
	p := message.NewPrinter(language.English)
	s := summary.Stats

	headerColor.Fprintln(w, "════════════════ 转换统计 ════════════════")
	p.Fprintf(w, "目录:       %s\n", summary.Root)
	if summary.SessionID != "" {
		dimColor.Fprintf(w, "运行记录:   %s\n", summary.SessionID)
	}
	p.Fprintf(w, "待处理:     %d\n", s.Total)
	successColor.Fprint(w, p.Sprintf("成功:       %d\n", s.Success))
	if s.Failed > 0 {
		errorColor.Fprint(w, p.Sprintf("失败:       %d\n", s.Failed))
	} else {
		p.Fprintf(w, "失败:       %d\n", s.Failed)
	}
	p.Fprintf(w, "跳过:       %d (输出更大 %d, 目标已存在 %d)\n", s.Skipped, s.SkippedLarger, s.SkippedExisting)

	if len(s.SkipReasons) > 0 {
		reasons := make([]converter.SkipReason, 0, len(s.SkipReasons))
		for r := range s.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		dimColor.Fprintln(w, "收集时排除:")
		for _, r := range reasons {
			label := skipReasonLabels[r]
			if label == "" {
				label = string(r)
			}
			p.Fprintf(w, "  %-20s %d\n", label, s.SkipReasons[r])
		}
	}

	if s.BytesInput > 0 {
		p.Fprintf(w, "体积:       %s → %s (减少 %.1f%%)\n",
			FormatBytes(s.BytesInput), FormatBytes(s.BytesOutput), s.Reduction())
	}
	if s.HealthPassed+s.HealthFailed > 0 {
		p.Fprintf(w, "健康检查:   通过 %d, 失败 %d (%.1f%%)\n", s.HealthPassed, s.HealthFailed, s.HealthRate())
	}
	if s.MetadataPartial > 0 {
		warnColor.Fprint(w, p.Sprintf("元数据不完整: %d\n", s.MetadataPartial))
	}
	if s.DeleteWarnings > 0 {
		warnColor.Fprint(w, p.Sprintf("源文件删除失败: %d\n", s.DeleteWarnings))
	}
	if s.TruncatedCollect {
		warnColor.Fprintln(w, "已达到文件数量上限，部分文件未收集")
	}
	if summary.Interrupted {
		warnColor.Fprintln(w, "运行被中断，未处理的文件保持原样")
	}
	p.Fprintf(w, "耗时:       %s\n", s.Elapsed.Round(time.Millisecond))
	headerColor.Fprintln(w, "══════════════════════════════════════════")
}

// PrintDryRun 列出将要处理的文件
func PrintDryRun(w io.Writer, entries []converter.FileEntry) {
	for _, e := range entries {
		dimColor.Fprintf(w, "[%s] ", e.Type)
		io.WriteString(w, e.Path+"\n")
	}
	message.NewPrinter(language.English).Fprintf(w, "共 %d 个文件\n", len(entries))
}

// FormatBytes 人类可读的字节数
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return message.NewPrinter(language.English).Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return message.NewPrinter(language.English).Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// PrintMissingTool 提示缺失的工具及安装方式
func PrintMissingTool(w io.Writer, name, hint string) {
	errorColor.Fprintf(w, "缺少必需工具: %s", name)
	dimColor.Fprintf(w, "  (%s)\n", hint)
}
