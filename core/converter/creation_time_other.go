//go:build !darwin

package converter

import "context"

// CopyCreationTime 仅macOS可写入创建时间
func (pa *PlatformAttributes) CopyCreationTime(ctx context.Context, src, dst string) error {
	return nil
}
