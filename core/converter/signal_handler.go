package converter

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// SignalHandler 将 SIGINT/SIGTERM 转换为上下文取消。
// 工作协程在两个文件之间检查取消，当前文件总会处理完。
type SignalHandler struct {
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	sigChan chan os.Signal
	done    chan struct{}
	mutex   sync.RWMutex

	isShuttingDown bool
	interruptCount int
	stopped        bool
}

// NewSignalHandler 创建新的信号处理器
func NewSignalHandler(parent context.Context, logger *zap.Logger) *SignalHandler {
	ctx, cancel := context.WithCancel(parent)
	return &SignalHandler{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// Context 运行上下文
func (sh *SignalHandler) Context() context.Context {
	return sh.ctx
}

// Start 启动信号监听
func (sh *SignalHandler) Start() {
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go sh.handleSignals()
}

// Stop 停止信号监听并释放上下文
func (sh *SignalHandler) Stop() {
	sh.mutex.Lock()
	if sh.stopped {
		sh.mutex.Unlock()
		return
	}
	sh.stopped = true
	sh.mutex.Unlock()

	signal.Stop(sh.sigChan)
	close(sh.done)
	sh.cancel()
}

func (sh *SignalHandler) handleSignals() {
	for {
		select {
		case sig := <-sh.sigChan:
			sh.handleInterrupt(sig)
		case <-sh.done:
			return
		}
	}
}

// handleInterrupt 首次中断取消上下文，之后只提示
func (sh *SignalHandler) handleInterrupt(sig os.Signal) {
	sh.mutex.Lock()
	defer sh.mutex.Unlock()

	sh.interruptCount++
	if sh.isShuttingDown {
		sh.logger.Warn("正在等待当前文件处理完成", zap.Int("interrupts", sh.interruptCount))
		return
	}

	sh.isShuttingDown = true
	sh.logger.Warn("收到中断信号，完成当前文件后停止", zap.String("signal", sig.String()))
	sh.cancel()
}

// IsShuttingDown 是否已收到中断
func (sh *SignalHandler) IsShuttingDown() bool {
	sh.mutex.RLock()
	defer sh.mutex.RUnlock()
	return sh.isShuttingDown
}
