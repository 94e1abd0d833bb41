package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConsoleLevels(t *testing.T) {
	tests := []struct {
		name      string
		cfg       LoggerConfig
		wantInfo  bool
		wantWarn  bool
		wantDebug bool
	}{
		{"默认", LoggerConfig{}, false, true, false},
		{"详细", LoggerConfig{Verbose: true}, true, true, true},
		{"静默", LoggerConfig{Silent: true}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := tt.cfg
			cfg.Console = &buf
			log, err := NewLoggerWithConfig(&cfg)
			if err != nil {
				t.Fatal(err)
			}
			log.Debug("debug-line")
			log.Info("info-line")
			log.Warn("warn-line")
			_ = log.Sync()

			out := buf.String()
			check := func(msg string, want bool) {
				if strings.Contains(out, msg) != want {
					t.Errorf("%s 输出=%v, 期望 %v", msg, !want, want)
				}
			}
			check("debug-line", tt.wantDebug)
			check("info-line", tt.wantInfo)
			check("warn-line", tt.wantWarn)
		})
	}
}

func TestFileCore(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	log, err := NewLoggerWithConfig(&LoggerConfig{EnableFile: true, LogDir: dir, Component: "test", Console: &console})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("写入文件")
	_ = log.Sync()

	path := filepath.Join(dir, "test_"+time.Now().Format("20060102")+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("日志文件不存在: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"写入文件"`) {
		t.Errorf("文件日志应记录所有级别: %s", data)
	}
	if console.Len() != 0 {
		t.Error("默认控制台不应输出 DEBUG")
	}
}

func TestLogFilePath(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local)
	if got := LogFilePath(&LoggerConfig{LogDir: dir}, day); got != filepath.Join(dir, "static2jxl_20240309.log") {
		t.Errorf("日志路径 %s", got)
	}
}
