package ui

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"static2jxl/core/converter"

	"github.com/pterm/pterm"
)

// Progress 终端进度条，silent 模式下不输出
type Progress struct {
	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	silent  bool
	start   time.Time
	current int
}

// NewProgress 创建进度条，首次更新时才知道总数
func NewProgress(silent bool) *Progress {
	return &Progress{silent: silent, start: time.Now()}
}

func (p *Progress) startBar(total int) {
	bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle("转换中").Start()
	if err != nil {
		p.silent = true
		return
	}
	bar.ShowElapsedTime = true
	bar.ShowCount = true
	bar.ShowPercentage = true
	bar.BarStyle = &pterm.Style{pterm.FgLightBlue, pterm.BgDefault}
	bar.TitleStyle = &pterm.Style{pterm.FgLightCyan, pterm.Bold}
	bar.BarCharacter = "█"
	bar.LastCharacter = "█"
	p.bar = bar
}

// Update 实现 converter.ProgressFunc
func (p *Progress) Update(processed, total int, current converter.FileEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.silent || processed <= p.current || total <= 0 {
		return
	}
	if p.bar == nil {
		p.startBar(total)
		if p.bar == nil {
			return
		}
	}

	p.bar.UpdateTitle(fmt.Sprintf("%s  ETA %s", filepath.Base(current.Path), ETA(time.Since(p.start), processed, total)))
	p.bar.Add(processed - p.current)
	p.current = processed
}

// Stop 结束进度条
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}

// ETA 按已处理文件的平均耗时估算剩余时间
func ETA(elapsed time.Duration, processed, total int) time.Duration {
	if processed <= 0 || total <= processed {
		return 0
	}
	per := elapsed / time.Duration(processed)
	return (per * time.Duration(total-processed)).Round(time.Second)
}
