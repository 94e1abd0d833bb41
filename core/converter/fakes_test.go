package converter

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
)

// fakeEncoder 写出指定大小的输出，ratio 为输出相对输入的比例
type fakeEncoder struct {
	ratio   float64
	invalid bool
	err     error
	partial bool
	panics  bool
	calls   atomic.Int32
}

func (e *fakeEncoder) Encode(_ context.Context, input, output string, _ EncodeMode, _ EncodeParams) error {
	e.calls.Add(1)
	if e.panics {
		panic("encoder crashed")
	}
	if e.err != nil {
		if e.partial {
			_ = os.WriteFile(output, []byte{0xFF}, 0644)
		}
		return &StageError{Stage: StageEncode, Path: input, Err: e.err, Output: []byte("encoder said no")}
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	size := int(float64(info.Size()) * e.ratio)
	if size < 2 {
		size = 2
	}
	data := make([]byte, size)
	if !e.invalid {
		copy(data, []byte{0xFF, 0x0A})
	}
	return os.WriteFile(output, data, 0644)
}

type fakeValidator struct {
	available bool
	err       error
}

func (v fakeValidator) Available() bool { return v.available }

func (v fakeValidator) Validate(context.Context, string) error { return v.err }

// callLog 记录调用顺序
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeCopier 模拟 exiftool 重写文件并刷新修改时间
type fakeCopier struct {
	log *callLog
	err error
}

func (c *fakeCopier) CopyMetadata(_ context.Context, _, dst string) error {
	if c.log != nil {
		c.log.add("tags")
	}
	if c.err != nil {
		return c.err
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

type fakeAttrs struct {
	log      *callLog
	xattrErr error
	// onCreation 在设置创建时间时检查目标状态
	onCreation func(src, dst string) error
}

func (a *fakeAttrs) CopyXattrs(_, _ string) error {
	if a.log != nil {
		a.log.add("xattr")
	}
	return a.xattrErr
}

func (a *fakeAttrs) CopyCreationTime(_ context.Context, src, dst string) error {
	if a.log != nil {
		a.log.add("creation")
	}
	if a.onCreation != nil {
		return a.onCreation(src, dst)
	}
	return nil
}

type fakeCounter struct {
	counts map[string]int
}

func (c fakeCounter) CountTags(_ context.Context, path string) (int, error) {
	n, ok := c.counts[path]
	if !ok {
		return 0, errors.New("no such file")
	}
	return n, nil
}

type resultCollector struct {
	mu      sync.Mutex
	results []*Result
}

func (r *resultCollector) ObserveResult(res *Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}
