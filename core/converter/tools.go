package converter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// EncodeMode 编码模式
type EncodeMode string

const (
	// ModeReversible JPEG可逆转码，可还原逐字节相同的原文件
	ModeReversible EncodeMode = "reversible"
	// ModeLossless 像素级数学无损
	ModeLossless EncodeMode = "lossless"
)

// EncodeParams 编码参数
type EncodeParams struct {
	Effort   int
	Distance float64
	Threads  int
}

// Encoder 将输入编码为JXL
type Encoder interface {
	Encode(ctx context.Context, input, output string, mode EncodeMode, params EncodeParams) error
}

// Validator 完整解码校验
type Validator interface {
	Available() bool
	Validate(ctx context.Context, path string) error
}

// MetadataCopier 复制内嵌元数据
type MetadataCopier interface {
	CopyMetadata(ctx context.Context, src, dst string) error
}

// TagCounter 统计元数据标签数量
type TagCounter interface {
	CountTags(ctx context.Context, path string) (int, error)
}

// AttributeCopier 平台相关的扩展属性与创建时间
type AttributeCopier interface {
	CopyXattrs(src, dst string) error
	CopyCreationTime(ctx context.Context, src, dst string) error
}

// CjxlEncoder 调用 cjxl
type CjxlEncoder struct {
	tools *ToolManager
	path  string
}

// NewCjxlEncoder 创建编码器
func NewCjxlEncoder(tools *ToolManager, path string) *CjxlEncoder {
	if path == "" {
		path = "cjxl"
	}
	return &CjxlEncoder{tools: tools, path: path}
}

// EncodeArgs 构造 cjxl 参数，两种模式的参数互斥
func EncodeArgs(input, output string, mode EncodeMode, params EncodeParams) []string {
	args := []string{input, output}
	if mode == ModeReversible {
		args = append(args, "--lossless_jpeg=1")
	} else {
		distance := "0"
		if params.Distance > 0 {
			distance = strconv.FormatFloat(params.Distance, 'f', -1, 64)
		}
		args = append(args, "-d", distance, "-e", strconv.Itoa(params.Effort))
	}
	if params.Threads > 0 {
		args = append(args, "--num_threads="+strconv.Itoa(params.Threads))
	}
	return args
}

// Encode 实现 Encoder
func (e *CjxlEncoder) Encode(ctx context.Context, input, output string, mode EncodeMode, params EncodeParams) error {
	out, err := e.tools.Execute(ctx, e.path, EncodeArgs(input, output, mode, params)...)
	if err != nil {
		return &StageError{Stage: StageEncode, Path: input, Err: err, Output: out}
	}
	return nil
}

// DjxlValidator 调用 djxl 解码到空设备
type DjxlValidator struct {
	tools *ToolManager
	path  string
}

// NewDjxlValidator 创建校验器
func NewDjxlValidator(tools *ToolManager, path string) *DjxlValidator {
	if path == "" {
		path = "djxl"
	}
	return &DjxlValidator{tools: tools, path: path}
}

// Available 实现 Validator
func (v *DjxlValidator) Available() bool {
	return v.tools.IsToolAvailable(v.path)
}

// Validate 实现 Validator
func (v *DjxlValidator) Validate(ctx context.Context, path string) error {
	out, err := v.tools.Execute(ctx, v.path, path, os.DevNull)
	if err != nil {
		return &StageError{Stage: StageHealth, Path: path, Err: err, Output: out}
	}
	return nil
}

// ExiftoolCopier 调用 exiftool 复制并统计标签
type ExiftoolCopier struct {
	tools *ToolManager
	path  string
}

// NewExiftoolCopier 创建元数据复制器
func NewExiftoolCopier(tools *ToolManager, path string) *ExiftoolCopier {
	if path == "" {
		path = "exiftool"
	}
	return &ExiftoolCopier{tools: tools, path: path}
}

// CopyMetadata 复制全部标签和ICC配置文件
func (c *ExiftoolCopier) CopyMetadata(ctx context.Context, src, dst string) error {
	out, err := c.tools.Execute(ctx, c.path,
		"-tagsfromfile", src,
		"-all:all",
		"-icc_profile",
		"-overwrite_original",
		dst)
	if err != nil {
		return fmt.Errorf("exiftool: %w (%s)", err, truncateOutput(out, 256))
	}
	return nil
}

// CountTags 以 -s -s -s 输出的非空行数作为标签数
func (c *ExiftoolCopier) CountTags(ctx context.Context, path string) (int, error) {
	out, err := c.tools.Execute(ctx, c.path, "-s", "-s", "-s", path)
	if err != nil {
		return 0, err
	}
	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, scanner.Err()
}

// ExifTagCounter 进程内统计EXIF标签，exiftool 不可用时使用
type ExifTagCounter struct{}

// CountTags 实现 TagCounter，没有EXIF时返回0
func (ExifTagCounter) CountTags(_ context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(f, nil, true)
	if err != nil {
		if isNoExif(err) {
			return 0, nil
		}
		return 0, err
	}
	return len(tags), nil
}

func isNoExif(err error) bool {
	return errors.Is(err, exif.ErrNoExif)
}

// fallbackCounter 依次尝试多个计数器
type fallbackCounter []TagCounter

func (fc fallbackCounter) CountTags(ctx context.Context, path string) (int, error) {
	var lastErr error
	for _, c := range fc {
		n, err := c.CountTags(ctx, path)
		if err == nil {
			return n, nil
		}
		lastErr = err
	}
	return 0, lastErr
}
