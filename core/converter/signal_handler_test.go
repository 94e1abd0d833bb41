package converter

import (
	"context"
	"os"
	"syscall"
	"testing"

	"go.uber.org/zap"
)

// TestHandleInterruptRepeated 第一次中断取消上下文，之后的中断只记录
func TestHandleInterruptRepeated(t *testing.T) {
	sh := NewSignalHandler(context.Background(), zap.NewNop())
	defer sh.Stop()

	if sh.IsShuttingDown() {
		t.Fatal("初始状态不应处于关闭中")
	}

	sh.handleInterrupt(os.Interrupt)
	if !sh.IsShuttingDown() {
		t.Error("第一次中断后应处于关闭中")
	}
	if sh.Context().Err() != context.Canceled {
		t.Error("第一次中断应取消上下文")
	}

	sh.handleInterrupt(syscall.SIGTERM)
	if sh.interruptCount != 2 {
		t.Errorf("中断计数 %d, 期望 2", sh.interruptCount)
	}
}

func TestSignalHandlerStopIdempotent(t *testing.T) {
	sh := NewSignalHandler(context.Background(), zap.NewNop())
	sh.Start()
	sh.Stop()
	sh.Stop()

	if sh.Context().Err() == nil {
		t.Error("停止后上下文应被释放")
	}
}
