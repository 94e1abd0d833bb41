//go:build !linux && !darwin

package converter

import (
	"os"
	"time"
)

// CopyXattrs 当前平台不支持扩展属性
func (pa *PlatformAttributes) CopyXattrs(src, dst string) error {
	return nil
}

func accessTime(_ string, info os.FileInfo) time.Time {
	return info.ModTime()
}
