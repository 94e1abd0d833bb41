//go:build darwin

package converter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CopyCreationTime 使用 GetFileInfo/SetFile 复制创建时间，未安装开发者工具时跳过
func (pa *PlatformAttributes) CopyCreationTime(ctx context.Context, src, dst string) error {
	if !pa.tools.IsToolAvailable(pa.getFileInfo) || !pa.tools.IsToolAvailable(pa.setFile) {
		pa.logger.Debug("GetFileInfo/SetFile 不可用，跳过创建时间")
		return nil
	}

	out, err := pa.tools.Execute(ctx, pa.getFileInfo, "-d", src)
	if err != nil {
		return fmt.Errorf("读取创建时间失败: %w", err)
	}
	created := strings.TrimSpace(string(out))
	if created == "" {
		return fmt.Errorf("创建时间为空: %s", src)
	}

	if out, err := pa.tools.Execute(ctx, pa.setFile, "-d", created, dst); err != nil {
		pa.logger.Debug("SetFile 输出", zap.String("output", truncateOutput(out, 256)))
		return fmt.Errorf("设置创建时间失败: %w", err)
	}
	return nil
}
