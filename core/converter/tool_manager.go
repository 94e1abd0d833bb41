package converter

import (
	"context"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// ToolManager 外部工具查找与执行
type ToolManager struct {
	logger     *zap.Logger
	toolCache  map[string]string
	cacheMutex sync.RWMutex
}

// NewToolManager 创建新的工具管理器
func NewToolManager(logger *zap.Logger) *ToolManager {
	return &ToolManager{
		logger:    logger,
		toolCache: make(map[string]string),
	}
}

// Resolve 解析工具路径，结果缓存，找不到时返回空串
func (tm *ToolManager) Resolve(tool string) string {
	if tool == "" {
		return ""
	}
	tm.cacheMutex.RLock()
	if path, ok := tm.toolCache[tool]; ok {
		tm.cacheMutex.RUnlock()
		return path
	}
	tm.cacheMutex.RUnlock()

	path, err := exec.LookPath(tool)
	if err != nil {
		tm.logger.Debug("工具不可用", zap.String("tool", tool), zap.Error(err))
		path = ""
	}

	tm.cacheMutex.Lock()
	tm.toolCache[tool] = path
	tm.cacheMutex.Unlock()
	return path
}

// IsToolAvailable 检查工具是否可用
func (tm *ToolManager) IsToolAvailable(tool string) bool {
	return tm.Resolve(tool) != ""
}

// Execute 执行工具并返回合并输出。不设超时，调用方决定是否可取消。
func (tm *ToolManager) Execute(ctx context.Context, tool string, args ...string) ([]byte, error) {
	path := tm.Resolve(tool)
	if path == "" {
		return nil, &exec.Error{Name: tool, Err: exec.ErrNotFound}
	}
	cmd := exec.CommandContext(ctx, path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		tm.logger.Debug("工具执行失败",
			zap.String("tool", tool),
			zap.Strings("args", args),
			zap.Error(err))
	}
	return output, err
}
