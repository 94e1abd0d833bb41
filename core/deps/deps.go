package deps

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ToolInfo 工具信息
type ToolInfo struct {
	Key          string
	Name         string
	Path         string
	Version      string
	Required     bool
	Installed    bool
	ErrorMessage string
	// Homebrew 包名
	Formula string
}

// ToolPaths 可配置的工具路径
type ToolPaths struct {
	Cjxl        string
	Djxl        string
	Exiftool    string
	GetFileInfo string
	SetFile     string
}

// DependencyManager 依赖管理器
type DependencyManager struct {
	tools map[string]*ToolInfo
}

// NewDependencyManager 创建依赖管理器。cjxl 和 exiftool 必需，djxl 缺失时健康检查只校验签名。
func NewDependencyManager(paths ToolPaths) *DependencyManager {
	dm := &DependencyManager{tools: make(map[string]*ToolInfo)}

	dm.add("cjxl", "JPEG XL Encoder", orDefault(paths.Cjxl, "cjxl"), true, "jpeg-xl")
	dm.add("exiftool", "ExifTool", orDefault(paths.Exiftool, "exiftool"), true, "exiftool")
	dm.add("djxl", "JPEG XL Decoder", orDefault(paths.Djxl, "djxl"), false, "jpeg-xl")
	if runtime.GOOS == "darwin" {
		dm.add("GetFileInfo", "GetFileInfo", orDefault(paths.GetFileInfo, "GetFileInfo"), false, "")
		dm.add("SetFile", "SetFile", orDefault(paths.SetFile, "SetFile"), false, "")
	}
	return dm
}

func (dm *DependencyManager) add(key, name, path string, required bool, formula string) {
	dm.tools[key] = &ToolInfo{
		Key:      key,
		Name:     name,
		Path:     path,
		Required: required,
		Formula:  formula,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// CheckDependencies 检查所有依赖
func (dm *DependencyManager) CheckDependencies(ctx context.Context) {
	for _, tool := range dm.tools {
		if err := dm.checkTool(ctx, tool); err != nil {
			tool.ErrorMessage = err.Error()
			tool.Installed = false
		} else {
			tool.Installed = true
		}
	}
}

// checkTool 检查单个工具，版本信息获取失败不影响可用性
func (dm *DependencyManager) checkTool(ctx context.Context, tool *ToolInfo) error {
	path, err := exec.LookPath(tool.Path)
	if err != nil {
		return fmt.Errorf("工具未找到: %s", tool.Path)
	}
	tool.Path = path
	tool.Version = toolVersion(ctx, tool.Key, path)
	return nil
}

// toolVersion 获取版本首行
func toolVersion(ctx context.Context, key, path string) string {
	var args []string
	switch key {
	case "exiftool":
		args = []string{"-ver"}
	case "GetFileInfo", "SetFile":
		return ""
	default:
		args = []string{"--version"}
	}
	output, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
}

// GetTool 获取工具信息
func (dm *DependencyManager) GetTool(key string) *ToolInfo {
	return dm.tools[key]
}

// Tools 按必需优先、名称排序
func (dm *DependencyManager) Tools() []*ToolInfo {
	list := make([]*ToolInfo, 0, len(dm.tools))
	for _, t := range dm.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Required != list[j].Required {
			return list[i].Required
		}
		return list[i].Key < list[j].Key
	})
	return list
}

// IsAllRequiredInstalled 检查所有必需工具是否已安装
func (dm *DependencyManager) IsAllRequiredInstalled() bool {
	return len(dm.GetMissingRequiredTools()) == 0
}

// GetMissingRequiredTools 获取缺失的必需工具
func (dm *DependencyManager) GetMissingRequiredTools() []*ToolInfo {
	var missing []*ToolInfo
	for _, tool := range dm.Tools() {
		if tool.Required && !tool.Installed {
			missing = append(missing, tool)
		}
	}
	return missing
}

// SystemInfo 运行环境
type SystemInfo struct {
	OS            string
	Arch          string
	LogicalCPUs   int
	PhysicalCPUs  int
	TotalMemoryMB uint64
}

// GetSystemInfo 读取CPU和内存信息，读取失败的字段为0
func GetSystemInfo() SystemInfo {
	info := SystemInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}
	if n, err := cpu.Counts(true); err == nil {
		info.LogicalCPUs = n
	}
	if n, err := cpu.Counts(false); err == nil {
		info.PhysicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryMB = vm.Total / 1024 / 1024
	}
	return info
}
