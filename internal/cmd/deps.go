package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"static2jxl/core/deps"
)

var installMissing bool

// depsCmd 检查外部工具
var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "检查 cjxl、djxl、exiftool 等外部工具",
	Args:  cobra.NoArgs,
	RunE:  runDeps,
}

func init() {
	depsCmd.Flags().BoolVar(&installMissing, "install", false, "通过 Homebrew 安装缺失的必需工具")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	dm := deps.NewDependencyManager(toolPaths(cfg))
	dm.CheckDependencies(cmd.Context())

	if installMissing && !dm.IsAllRequiredInstalled() {
		if err := deps.NewInstaller(dm, cmd.ErrOrStderr()).InstallAllRequired(cmd.Context()); err != nil {
			return err
		}
	}

	data := pterm.TableData{{"工具", "必需", "状态", "版本", "路径"}}
	for _, t := range dm.Tools() {
		status := pterm.Green("已安装")
		if !t.Installed {
			status = pterm.Red("缺失") + " " + deps.InstallHint(t)
		}
		required := ""
		if t.Required {
			required = "是"
		}
		data = append(data, []string{t.Name, required, status, t.Version, t.Path})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render(); err != nil {
		return err
	}

	info := deps.GetSystemInfo()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s/%s  CPU %d 逻辑核 / %d 物理核  内存 %d MB\n",
		info.OS, info.Arch, info.LogicalCPUs, info.PhysicalCPUs, info.TotalMemoryMB)

	if !dm.IsAllRequiredInstalled() {
		return fmt.Errorf("缺少 %d 个必需工具", len(dm.GetMissingRequiredTools()))
	}
	return nil
}
