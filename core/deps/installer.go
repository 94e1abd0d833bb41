package deps

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Installer 通过 Homebrew 安装缺失的工具
type Installer struct {
	dm  *DependencyManager
	out io.Writer
}

// NewInstaller 创建安装器
func NewInstaller(dm *DependencyManager, out io.Writer) *Installer {
	return &Installer{dm: dm, out: out}
}

// InstallHint 手动安装提示
func InstallHint(tool *ToolInfo) string {
	if tool.Formula == "" {
		return "xcode-select --install"
	}
	return "brew install " + tool.Formula
}

// InstallAllRequired 安装所有缺失的必需工具，同一个包只安装一次
func (i *Installer) InstallAllRequired(ctx context.Context) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("当前仅支持macOS系统")
	}
	if _, err := exec.LookPath("brew"); err != nil {
		return fmt.Errorf("请先安装Homebrew: https://brew.sh")
	}

	installed := make(map[string]bool)
	for _, tool := range i.dm.GetMissingRequiredTools() {
		if tool.Formula == "" || installed[tool.Formula] {
			continue
		}
		fmt.Fprintf(i.out, "正在安装 %s...\n", tool.Formula)
		cmd := exec.CommandContext(ctx, "brew", "install", tool.Formula)
		cmd.Stdout = i.out
		cmd.Stderr = i.out
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("安装 %s 失败: %w", tool.Formula, err)
		}
		installed[tool.Formula] = true
	}

	i.dm.CheckDependencies(ctx)
	if !i.dm.IsAllRequiredInstalled() {
		return fmt.Errorf("安装后仍有必需工具缺失")
	}
	return nil
}
