package converter

import "go.uber.org/zap"

// PlatformAttributes 扩展属性和创建时间的平台实现
type PlatformAttributes struct {
	logger      *zap.Logger
	tools       *ToolManager
	getFileInfo string
	setFile     string
}

// NewPlatformAttributes 创建平台属性复制器
func NewPlatformAttributes(logger *zap.Logger, tools *ToolManager, getFileInfo, setFile string) *PlatformAttributes {
	if getFileInfo == "" {
		getFileInfo = "GetFileInfo"
	}
	if setFile == "" {
		setFile = "SetFile"
	}
	return &PlatformAttributes{
		logger:      logger,
		tools:       tools,
		getFileInfo: getFileInfo,
		setFile:     setFile,
	}
}
