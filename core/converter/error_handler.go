package converter

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Stage 转换流水线阶段
type Stage string

const (
	StageEncode   Stage = "encode"
	StageHealth   Stage = "health"
	StageMetadata Stage = "metadata"
	StageCommit   Stage = "commit"
	// StageInternal 流水线内部 panic
	StageInternal Stage = "internal"
)

var (
	// ErrInvalidSignature 输出文件不是有效的JXL
	ErrInvalidSignature = errors.New("输出文件签名无效")
	// ErrForbiddenDirectory 原地模式拒绝处理系统目录
	ErrForbiddenDirectory = errors.New("禁止在该目录执行原地替换")
	// ErrInsufficientDisk 磁盘剩余空间不足
	ErrInsufficientDisk = errors.New("磁盘空间不足")
	// ErrConversionFailures 存在转换失败的文件
	ErrConversionFailures = errors.New("部分文件转换失败")
	// ErrAborted 用户取消原地替换
	ErrAborted = errors.New("用户取消操作")
	// ErrOutputExists 目标路径已被其他文件占用
	ErrOutputExists = errors.New("输出文件已存在")
)

// StageError 携带阶段和文件信息的错误
type StageError struct {
	Stage  Stage
	Path   string
	Err    error
	Output []byte
}

// Error 实现error接口
func (e *StageError) Error() string {
	var builder strings.Builder
	builder.WriteString("[")
	builder.WriteString(string(e.Stage))
	builder.WriteString("] ")
	builder.WriteString(e.Path)
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

// Unwrap 支持错误链
func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrorHandler 统一的错误处理器
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler 创建新的错误处理器
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// WrapError 包装错误并附加上下文
func (eh *ErrorHandler) WrapError(operation string, err error, details ...interface{}) error {
	if err == nil {
		return nil
	}
	var detail string
	if len(details) > 0 {
		detail = fmt.Sprintf(" %v", details)
	}
	return fmt.Errorf("%s failed: %w%s", operation, err, detail)
}

// StageFailure 构造阶段错误并记录日志
func (eh *ErrorHandler) StageFailure(stage Stage, path string, err error, output []byte) *StageError {
	se := &StageError{Stage: stage, Path: path, Err: err, Output: output}
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.String("file", path),
		zap.Error(err),
	}
	if len(output) > 0 {
		fields = append(fields, zap.String("output", truncateOutput(output, 512)))
	}
	eh.logger.Error("文件处理失败", fields...)
	return se
}

// truncateOutput 截断工具输出
func truncateOutput(out []byte, limit int) string {
	s := strings.TrimSpace(string(out))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
