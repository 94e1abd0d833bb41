package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// DefaultMaxFiles 收集文件数上限
const DefaultMaxFiles = 100000

// errStopWalk 达到上限后终止遍历
var errStopWalk = errors.New("stop walk")

// FileEntry 工作列表中的一项，创建后不再修改
type FileEntry struct {
	Path          string
	Size          int64
	Type          FileType
	Compression   TiffCompression
	UseReversible bool
}

// Mode 转换模式
func (e FileEntry) Mode() EncodeMode {
	if e.UseReversible {
		return ModeReversible
	}
	return ModeLossless
}

// CollectorOptions 收集器配置
type CollectorOptions struct {
	Recursive bool
	MaxFiles  int
	Policy    Policy
}

// Collector 遍历目录并构建工作列表
type Collector struct {
	logger *zap.Logger
	stats  *ConversionStats
	opts   CollectorOptions
}

// NewCollector 创建收集器
func NewCollector(logger *zap.Logger, stats *ConversionStats, opts CollectorOptions) *Collector {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	return &Collector{
		logger: logger,
		stats:  stats,
		opts:   opts,
	}
}

// Collect 遍历 root，返回所有需要转换的文件
func (c *Collector) Collect(ctx context.Context, root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("解析目录失败: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("无法访问目录: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("不是目录: %s", root)
	}

	var entries []FileEntry
	claimed := make(map[string]string)
	err = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if p == root {
				return nil
			}
			if strings.HasPrefix(de.Name(), ".") {
				if de.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if de.IsDir() {
				if !c.opts.Recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if de.IsSymlink() {
				c.logger.Debug("跳过符号链接", zap.String("path", p))
				return nil
			}
			if !de.IsRegular() {
				return nil
			}

			entry, ok := c.inspect(p)
			if !ok {
				return nil
			}
			output := OutputPathFor(p)
			if owner, taken := claimed[outputKey(output)]; taken {
				c.stats.AddSkipReason(ReasonOutputConflict)
				c.logger.Warn("输出路径冲突，跳过",
					zap.String("file", p),
					zap.String("kept", owner),
					zap.String("output", output))
				return nil
			}
			if len(entries) >= c.opts.MaxFiles {
				c.stats.MarkTruncated()
				c.logger.Warn("文件数量达到上限，停止收集", zap.Int("max_files", c.opts.MaxFiles))
				return errStopWalk
			}
			claimed[outputKey(output)] = p
			entries = append(entries, entry)
			c.stats.AddCollected(entry.Type)
			return nil
		},
		ErrorCallback: func(p string, err error) godirwalk.ErrorAction {
			if errors.Is(err, errStopWalk) || ctx.Err() != nil {
				return godirwalk.Halt
			}
			c.logger.Warn("无法访问路径", zap.String("path", p), zap.Error(err))
			return godirwalk.SkipNode
		},
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return entries, err
	}
	return entries, nil
}

// inspect 识别单个文件并做资格判定
func (c *Collector) inspect(path string) (FileEntry, bool) {
	info, err := os.Stat(path)
	if err != nil {
		c.logger.Debug("无法读取文件信息", zap.String("path", path), zap.Error(err))
		return FileEntry{}, false
	}

	ft := Classify(path)
	compression := CompressionNone
	if ft == FileTypeTIFF {
		compression = InspectTiff(path)
	}

	decision := c.opts.Policy.Decide(ft, compression, info.Size())
	if decision.Skip() {
		c.stats.AddSkipReason(decision.Reason)
		if ce := c.logger.Check(zap.DebugLevel, "跳过文件"); ce != nil {
			ce.Write(
				zap.String("path", path),
				zap.String("type", ft.String()),
				zap.String("reason", string(decision.Reason)),
				zap.String("mime", mimeHint(path)),
			)
		}
		return FileEntry{}, false
	}

	return FileEntry{
		Path:          path,
		Size:          info.Size(),
		Type:          ft,
		Compression:   compression,
		UseReversible: ft == FileTypeJPEG,
	}, true
}

// outputKey 大小写不敏感的文件系统上 A.jxl 与 a.jxl 是同一个文件
func outputKey(path string) string {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return strings.ToLower(path)
	}
	return path
}

// mimeHint 仅用于调试日志
func mimeHint(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	header := make([]byte, 261)
	n, _ := f.Read(header)
	kind, _ := filetype.Match(header[:n])
	if kind == types.Unknown {
		return ""
	}
	return kind.MIME.Value
}
