package converter

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// PathUtils 路径处理工具
type PathUtils struct{}

// GlobalPathUtils 全局路径工具实例
var GlobalPathUtils = &PathUtils{}

// NormalizePath 展开 ~，转为绝对路径，并修复非UTF-8编码的中文路径
func (pu *PathUtils) NormalizePath(input string) (string, error) {
	path := input
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(homeDir, path[1:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	// 只有修复后的路径真实存在时才替换
	if !utf8.ValidString(absPath) {
		if fixed := pu.detectAndFixEncoding(absPath); fixed != absPath {
			if _, err := os.Stat(fixed); err == nil {
				absPath = fixed
			}
		}
	}
	return absPath, nil
}

// detectAndFixEncoding 按 GBK、GB18030 顺序尝试解码
func (pu *PathUtils) detectAndFixEncoding(path string) string {
	decoders := []transform.Transformer{
		simplifiedchinese.GBK.NewDecoder(),
		simplifiedchinese.GB18030.NewDecoder(),
	}

	for _, dec := range decoders {
		decoded, err := io.ReadAll(transform.NewReader(strings.NewReader(path), dec))
		if err != nil {
			continue
		}
		s := string(decoded)
		if utf8.ValidString(s) && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return path
}

// ResolvePath 规范化并解析符号链接，解析失败时返回规范化结果
func (pu *PathUtils) ResolvePath(input string) (string, error) {
	normalized, err := pu.NormalizePath(input)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(normalized)
	if err != nil {
		return normalized, err
	}
	return resolved, nil
}
