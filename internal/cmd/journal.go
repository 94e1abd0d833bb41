package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"static2jxl/core/converter"
	"static2jxl/core/state"
	"static2jxl/internal/ui"
)

var showJournalFiles bool

// journalCmd 查看最近一次运行记录
var journalCmd = &cobra.Command{
	Use:   "journal <db>",
	Short: "显示运行记录中最近一次会话",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().BoolVar(&showJournalFiles, "files", false, "列出每个文件的处理结果")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	journal, err := state.NewManager(args[0], log)
	if err != nil {
		return err
	}
	defer journal.Close()

	session, err := journal.LastSession()
	if errors.Is(err, state.ErrNoSession) {
		fmt.Fprintln(cmd.OutOrStdout(), "没有运行记录")
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "会话:   %s\n", session.ID)
	fmt.Fprintf(out, "目录:   %s\n", session.Root)
	fmt.Fprintf(out, "开始:   %s\n", session.StartTime.Format(time.DateTime))
	switch {
	case session.EndTime.IsZero():
		fmt.Fprintln(out, "状态:   未正常结束")
	case session.Interrupted:
		fmt.Fprintf(out, "状态:   中断于 %s\n", session.EndTime.Format(time.DateTime))
	default:
		fmt.Fprintf(out, "结束:   %s\n", session.EndTime.Format(time.DateTime))
	}
	if s := session.Summary; s != nil {
		fmt.Fprintf(out, "结果:   共 %d, 成功 %d, 失败 %d, 跳过 %d\n", s.Total, s.Success, s.Failed, s.Skipped)
		if s.BytesInput > 0 {
			fmt.Fprintf(out, "体积:   %s → %s (减少 %.1f%%)\n",
				ui.FormatBytes(s.BytesInput), ui.FormatBytes(s.BytesOutput),
				converter.ReductionPercent(s.BytesInput, s.BytesOutput))
		}
	}

	if !showJournalFiles {
		return nil
	}
	files, err := journal.ListFiles(session.ID)
	if err != nil {
		return err
	}
	data := pterm.TableData{{"结果", "模式", "文件", "错误"}}
	for _, f := range files {
		data = append(data, []string{f.Outcome, f.Mode, f.Path, f.Error})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
}
