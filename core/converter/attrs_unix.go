//go:build linux || darwin

package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// CopyXattrs 复制全部扩展属性，不支持扩展属性的文件系统直接跳过
func (pa *PlatformAttributes) CopyXattrs(src, dst string) error {
	size, err := unix.Listxattr(src, nil)
	if err != nil {
		if errors.Is(err, unix.ENOTSUP) {
			return nil
		}
		return fmt.Errorf("列出扩展属性失败: %w", err)
	}
	if size == 0 {
		return nil
	}

	buf := make([]byte, size)
	size, err = unix.Listxattr(src, buf)
	if err != nil {
		return fmt.Errorf("列出扩展属性失败: %w", err)
	}

	var failed []string
	for _, name := range bytes.Split(buf[:size], []byte{0}) {
		if len(name) == 0 {
			continue
		}
		attr := string(name)
		if err := copyXattr(src, dst, attr); err != nil {
			failed = append(failed, attr)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("部分扩展属性复制失败: %v", failed)
	}
	return nil
}

func copyXattr(src, dst, name string) error {
	size, err := unix.Getxattr(src, name, nil)
	if err != nil {
		return err
	}
	val := make([]byte, size)
	if size > 0 {
		if size, err = unix.Getxattr(src, name, val); err != nil {
			return err
		}
	}
	return unix.Setxattr(dst, name, val[:size], 0)
}

// accessTime 读取访问时间，失败时退回修改时间
func accessTime(path string, info os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Unix())
}
