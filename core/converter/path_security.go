package converter

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// PathSecurityChecker 路径安全检查器
type PathSecurityChecker struct {
	logger      *zap.Logger
	forbidden   []string
	protectHome bool
}

// NewPathSecurityChecker 创建路径安全检查器
func NewPathSecurityChecker(logger *zap.Logger, forbidden []string, protectHome bool) *PathSecurityChecker {
	return &PathSecurityChecker{
		logger:      logger,
		forbidden:   forbidden,
		protectHome: protectHome,
	}
}

// CheckInPlaceTarget 原地替换前检查目标目录。
// 只拒绝与系统目录或主目录本身相同的路径，其子目录允许处理。无法解析的路径一律拒绝。
func (psc *PathSecurityChecker) CheckInPlaceTarget(dir string) error {
	resolved, err := GlobalPathUtils.ResolvePath(dir)
	if err != nil {
		return fmt.Errorf("%w: 无法解析路径 %s: %v", ErrForbiddenDirectory, dir, err)
	}

	for _, f := range psc.forbidden {
		if sameDir(resolved, f) {
			return fmt.Errorf("%w: %s", ErrForbiddenDirectory, resolved)
		}
	}

	if psc.protectHome {
		if home, err := os.UserHomeDir(); err == nil && sameDir(resolved, home) {
			return fmt.Errorf("%w: %s", ErrForbiddenDirectory, resolved)
		}
	}

	psc.logger.Debug("路径安全检查通过", zap.String("path", resolved))
	return nil
}

// sameDir 比较两个目录，符号链接解析后再比较
func sameDir(path, dir string) bool {
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return path == resolved
	}
	return false
}
