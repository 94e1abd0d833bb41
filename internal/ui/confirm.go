package ui

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNotInteractive 非终端环境无法确认
var ErrNotInteractive = errors.New("非交互终端，请使用 --yes 确认原地替换")

// IsInteractive 标准输入和输出均为终端
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ConfirmInPlace 原地替换前请求确认，返回 false 表示用户拒绝
func ConfirmInPlace(root string, files int) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}

	warnColor.Printf("将原地替换 %s 下的 %d 个文件，成功转换的源文件会被删除\n", root, files)
	prompt := promptui.Prompt{
		Label:     "继续",
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, fmt.Errorf("确认失败: %w", err)
	}
	return true, nil
}
