package config

import "github.com/spf13/viper"

const (
	// DefaultThreads 默认并发数
	DefaultThreads = 4
	// MaxThreads 并发上限
	MaxThreads = 32
	// DefaultEffort cjxl 默认 effort
	DefaultEffort = 7
	// DefaultDistance -1 表示自动
	DefaultDistance = -1.0
	// DefaultMinLosslessSize 2 MiB
	DefaultMinLosslessSize = 2 * 1024 * 1024
	// DefaultMaxFiles 收集文件数上限
	DefaultMaxFiles = 100000
	// DefaultEncoderThreads 单次 cjxl 调用的线程数
	DefaultEncoderThreads = 2
)

// DefaultForbiddenDirectories 原地模式禁止的系统目录
var DefaultForbiddenDirectories = []string{
	"/", "/etc", "/bin", "/sbin", "/usr", "/var",
	"/System", "/Library", "/Applications", "/private",
}

// setDefaults 设置所有默认配置值
func setDefaults(v *viper.Viper) {
	setConversionDefaults(v)
	setToolsDefaults(v)
	setSecurityDefaults(v)

	v.SetDefault("concurrency.threads", DefaultThreads)

	v.SetDefault("output.journal_path", "")
	v.SetDefault("output.metrics_file", "")

	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.enable_file", false)
	v.SetDefault("logging.log_dir", "./logs")

	v.SetDefault("ui.silent", false)
	v.SetDefault("ui.assume_yes", false)
}

func setConversionDefaults(v *viper.Viper) {
	v.SetDefault("conversion.in_place", false)
	v.SetDefault("conversion.skip_health_check", false)
	v.SetDefault("conversion.recursive", true)
	v.SetDefault("conversion.force_lossless", false)
	v.SetDefault("conversion.dry_run", false)
	v.SetDefault("conversion.verify_metadata", false)
	v.SetDefault("conversion.effort", DefaultEffort)
	v.SetDefault("conversion.distance", DefaultDistance)
	v.SetDefault("conversion.min_lossless_size", DefaultMinLosslessSize)
}

// setToolsDefaults 使用工具名，运行时在 PATH 中查找
func setToolsDefaults(v *viper.Viper) {
	v.SetDefault("tools.cjxl_path", "cjxl")
	v.SetDefault("tools.djxl_path", "djxl")
	v.SetDefault("tools.exiftool_path", "exiftool")
	v.SetDefault("tools.getfileinfo_path", "GetFileInfo")
	v.SetDefault("tools.setfile_path", "SetFile")
	v.SetDefault("tools.encoder_threads", DefaultEncoderThreads)
}

func setSecurityDefaults(v *viper.Viper) {
	v.SetDefault("security.forbidden_directories", DefaultForbiddenDirectories)
	v.SetDefault("security.protect_home", true)
	v.SetDefault("security.check_disk_space", true)
	v.SetDefault("security.max_files", DefaultMaxFiles)
}
