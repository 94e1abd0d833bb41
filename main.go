package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"static2jxl/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("错误: %v", err))
		os.Exit(1)
	}
}
