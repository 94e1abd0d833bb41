package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config 应用配置结构
type Config struct {
	// 转换设置
	Conversion ConversionConfig `mapstructure:"conversion"`

	// 并发设置
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`

	// 输出设置
	Output OutputConfig `mapstructure:"output"`

	// 外部工具路径
	Tools ToolsConfig `mapstructure:"tools"`

	// 安全设置
	Security SecurityConfig `mapstructure:"security"`

	// 日志设置
	Logging LoggingConfig `mapstructure:"logging"`

	// 界面设置
	UI UIConfig `mapstructure:"ui"`
}

// ConversionConfig 转换配置
type ConversionConfig struct {
	InPlace         bool    `mapstructure:"in_place"`
	SkipHealthCheck bool    `mapstructure:"skip_health_check"`
	Recursive       bool    `mapstructure:"recursive"`
	ForceLossless   bool    `mapstructure:"force_lossless"`
	DryRun          bool    `mapstructure:"dry_run"`
	VerifyMetadata  bool    `mapstructure:"verify_metadata"`
	Effort          int     `mapstructure:"effort"`
	Distance        float64 `mapstructure:"distance"`
	// 无损源格式的最小体积（字节）
	MinLosslessSize int64 `mapstructure:"min_lossless_size"`
}

// ConcurrencyConfig 并发配置
type ConcurrencyConfig struct {
	Threads int `mapstructure:"threads"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	JournalPath string `mapstructure:"journal_path"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// ToolsConfig 外部工具路径
type ToolsConfig struct {
	CjxlPath        string `mapstructure:"cjxl_path"`
	DjxlPath        string `mapstructure:"djxl_path"`
	ExiftoolPath    string `mapstructure:"exiftool_path"`
	GetFileInfoPath string `mapstructure:"getfileinfo_path"`
	SetFilePath     string `mapstructure:"setfile_path"`
	EncoderThreads  int    `mapstructure:"encoder_threads"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	ForbiddenDirectories []string `mapstructure:"forbidden_directories"`
	ProtectHome          bool     `mapstructure:"protect_home"`
	CheckDiskSpace       bool     `mapstructure:"check_disk_space"`
	MaxFiles             int      `mapstructure:"max_files"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Verbose    bool   `mapstructure:"verbose"`
	EnableFile bool   `mapstructure:"enable_file"`
	LogDir     string `mapstructure:"log_dir"`
}

// UIConfig 界面配置
type UIConfig struct {
	Silent    bool `mapstructure:"silent"`
	AssumeYes bool `mapstructure:"assume_yes"`
}

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	var builder strings.Builder
	builder.WriteString("配置验证失败 [")
	builder.WriteString(e.Field)
	builder.WriteString("]: ")
	builder.WriteString(e.Message)
	builder.WriteString(" (当前值: ")
	builder.WriteString(fmt.Sprint(e.Value))
	builder.WriteString(")")
	return builder.String()
}

// flagBindings 命令行参数到配置键的映射
var flagBindings = map[string]string{
	"in-place":          "conversion.in_place",
	"skip-health-check": "conversion.skip_health_check",
	"force-lossless":    "conversion.force_lossless",
	"dry-run":           "conversion.dry_run",
	"verify-metadata":   "conversion.verify_metadata",
	"effort":            "conversion.effort",
	"distance":          "conversion.distance",
	"threads":           "concurrency.threads",
	"verbose":           "logging.verbose",
	"silent":            "ui.silent",
	"yes":               "ui.assume_yes",
	"journal":           "output.journal_path",
	"metrics-file":      "output.metrics_file",
}

// NewConfig 创建新的配置实例。优先级: 命令行 > 环境变量 > 配置文件 > 默认值
func NewConfig(configFile string, flags *pflag.FlagSet, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".static2jxl")
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.SetEnvPrefix("STATIC2JXL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// 配置文件不存在，使用默认配置
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if flags != nil {
		if f := flags.Lookup("no-recursive"); f != nil && f.Changed && f.Value.String() == "true" {
			config.Conversion.Recursive = false
		}
	}

	if err := validateConfig(&config, logger); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateConfig 验证配置，可修正的值直接修正
func validateConfig(config *Config, logger *zap.Logger) error {
	threads := config.Concurrency.Threads
	if threads < 1 {
		return &ValidationError{Field: "concurrency.threads", Value: threads, Message: "线程数至少为1"}
	}
	if threads > MaxThreads {
		logger.Warn("线程数超过上限，已调整", zap.Int("requested", threads), zap.Int("max", MaxThreads))
		config.Concurrency.Threads = MaxThreads
	}

	effort := config.Conversion.Effort
	if effort < 1 || effort > 9 {
		return &ValidationError{Field: "conversion.effort", Value: effort, Message: "effort 必须在 1-9 之间"}
	}

	distance := config.Conversion.Distance
	if distance != DefaultDistance && (distance < 0 || distance > 25) {
		return &ValidationError{Field: "conversion.distance", Value: distance, Message: "distance 必须为 -1 或 0-25"}
	}

	if config.Conversion.MinLosslessSize < 0 {
		return &ValidationError{Field: "conversion.min_lossless_size", Value: config.Conversion.MinLosslessSize, Message: "不能为负数"}
	}

	if config.Security.MaxFiles < 1 {
		return &ValidationError{Field: "security.max_files", Value: config.Security.MaxFiles, Message: "至少为1"}
	}

	if config.Tools.EncoderThreads < 0 {
		config.Tools.EncoderThreads = 0
	}
	return nil
}
