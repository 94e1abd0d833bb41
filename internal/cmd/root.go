package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"static2jxl/config"
	"static2jxl/core/converter"
	"static2jxl/core/deps"
	"static2jxl/core/state"
	"static2jxl/internal/logger"
	"static2jxl/internal/metrics"
	"static2jxl/internal/ui"
	"static2jxl/internal/version"
)

// 全局变量
var (
	cfgFile string
	log     *zap.Logger
	cfg     *config.Config
)

// rootCmd 根命令：转换指定目录
var rootCmd = &cobra.Command{
	Use:   "static2jxl <directory>",
	Short: "将静态图像批量转换为 JPEG XL",
	Long: `static2jxl 扫描目录中的静态图像，按格式选择可逆 JPEG 重打包或数学无损编码，
转换后校验输出并迁移元数据。

支持的源格式: JPEG, PNG, BMP, TGA, PPM/PGM/PBM, TIFF (非 JPEG 压缩)
跳过: RAW, 已是 JXL, JPEG 压缩的 TIFF, 低于最小尺寸的无损源`,
	Version:           version.GetVersionWithPrefix(),
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	RunE:              runConvert,
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "配置文件 (默认: $HOME/.static2jxl.yaml)")
	pf.BoolP("verbose", "v", false, "详细日志")

	f := rootCmd.Flags()
	f.BoolP("in-place", "i", false, "原地替换，成功后删除源文件")
	f.Bool("skip-health-check", false, "跳过输出健康检查")
	f.Bool("no-recursive", false, "不递归子目录")
	f.Bool("force-lossless", false, "无损源文件忽略最小尺寸阈值 (JPEG 始终可逆转码)")
	f.Bool("dry-run", false, "只列出将要处理的文件")
	f.IntP("threads", "j", config.DefaultThreads, "并发数 (最大 32)")
	f.Float64P("distance", "d", config.DefaultDistance, "距离参数，-1 表示按模式自动")
	f.IntP("effort", "e", config.DefaultEffort, "编码努力程度 (1-9)")
	f.Bool("verify-metadata", false, "迁移后校验元数据标签数")
	f.BoolP("yes", "y", false, "原地替换时不再确认")
	f.Bool("silent", false, "不显示进度条，结束时输出 JSON 报告")
	f.String("journal", "", "运行记录数据库路径")
	f.String("metrics-file", "", "指标 textfile 输出路径")
}

// initConfig 初始化日志和配置
func initConfig(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	bootstrap, err := logger.NewLogger(verbose)
	if err != nil {
		return err
	}

	cfg, err = config.NewConfig(cfgFile, cmd.Flags(), bootstrap)
	if err != nil {
		return err
	}

	log, err = logger.NewLoggerWithConfig(&logger.LoggerConfig{
		Verbose:    cfg.Logging.Verbose,
		Silent:     cfg.UI.Silent,
		EnableFile: cfg.Logging.EnableFile,
		LogDir:     cfg.Logging.LogDir,
		Component:  "static2jxl",
	})
	if err != nil {
		return err
	}
	log.Debug("初始化完成", zap.String("version", version.GetVersion()))
	return nil
}

// toolPaths 配置中的工具路径
func toolPaths(c *config.Config) deps.ToolPaths {
	return deps.ToolPaths{
		Cjxl:        c.Tools.CjxlPath,
		Djxl:        c.Tools.DjxlPath,
		Exiftool:    c.Tools.ExiftoolPath,
		GetFileInfo: c.Tools.GetFileInfoPath,
		SetFile:     c.Tools.SetFilePath,
	}
}

// checkTools 确认必需工具可用并回填解析后的路径
func checkTools(cmd *cobra.Command, opts *converter.Options) error {
	dm := deps.NewDependencyManager(toolPaths(cfg))
	dm.CheckDependencies(cmd.Context())

	if missing := dm.GetMissingRequiredTools(); len(missing) > 0 {
		for _, t := range missing {
			ui.PrintMissingTool(cmd.ErrOrStderr(), t.Name, deps.InstallHint(t))
		}
		return fmt.Errorf("缺少 %d 个必需工具，可运行 static2jxl deps --install", len(missing))
	}

	if djxl := dm.GetTool("djxl"); !djxl.Installed && !opts.SkipHealthCheck {
		log.Warn("未找到 djxl，健康检查只校验文件签名")
	}

	opts.CjxlPath = dm.GetTool("cjxl").Path
	opts.ExiftoolPath = dm.GetTool("exiftool").Path
	if djxl := dm.GetTool("djxl"); djxl.Installed {
		opts.DjxlPath = djxl.Path
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	defer func() { _ = log.Sync() }()

	opts := converter.OptionsFromConfig(cfg)
	if !opts.DryRun {
		if err := checkTools(cmd, &opts); err != nil {
			return err
		}
	}

	signals := converter.NewSignalHandler(cmd.Context(), log)
	signals.Start()
	defer signals.Stop()

	var options []converter.ConverterOption

	progress := ui.NewProgress(cfg.UI.Silent || opts.DryRun)
	defer progress.Stop()
	options = append(options, converter.WithProgress(progress.Update))

	if opts.InPlace && !cfg.UI.AssumeYes {
		options = append(options, converter.WithConfirm(func(root string, entries []converter.FileEntry) (bool, error) {
			return ui.ConfirmInPlace(root, len(entries))
		}))
	}

	if cfg.Output.JournalPath != "" {
		journal, err := state.NewManager(cfg.Output.JournalPath, log)
		if err != nil {
			return fmt.Errorf("打开运行记录失败: %w", err)
		}
		defer journal.Close()
		options = append(options, converter.WithJournal(journal))
	}

	var m *metrics.Metrics
	if cfg.Output.MetricsFile != "" {
		m = metrics.New()
		options = append(options, converter.WithObserver(m))
	}

	conv := converter.NewConverter(log, opts, options...)
	summary, err := conv.Run(signals.Context(), args[0])
	progress.Stop()
	if errors.Is(err, converter.ErrAborted) {
		fmt.Fprintln(cmd.ErrOrStderr(), "已取消")
		return nil
	}
	if err != nil {
		return err
	}

	if opts.DryRun {
		ui.PrintDryRun(cmd.OutOrStdout(), summary.Entries)
		return nil
	}

	if m != nil {
		m.ObserveSummary(summary.Stats)
		if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			log.Warn("指标文件写入失败", zap.String("path", cfg.Output.MetricsFile), zap.Error(err))
		}
	}

	if cfg.UI.Silent {
		if err := converter.NewReport(summary).WriteJSON(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		ui.PrintSummary(cmd.OutOrStdout(), summary)
	}

	if summary.Failed() > 0 {
		return fmt.Errorf("%w: %d", converter.ErrConversionFailures, summary.Failed())
	}
	return nil
}
