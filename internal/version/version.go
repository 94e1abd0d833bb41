package version

import "fmt"

// 版本号统一在此定义
const (
	Major = 1
	Minor = 0
	Patch = 0

	Version           = "1.0.0"
	VersionWithPrefix = "v1.0.0"
)

// 通过 ldflags 设置
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetVersion 获取版本号（不带前缀）
func GetVersion() string {
	return Version
}

// GetVersionWithPrefix 获取带前缀的版本号
func GetVersionWithPrefix() string {
	return VersionWithPrefix
}

// String 完整版本信息
func String() string {
	return fmt.Sprintf("static2jxl %s (commit %s, built %s)", VersionWithPrefix, GitCommit, BuildTime)
}
