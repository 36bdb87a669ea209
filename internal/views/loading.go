package views

import (
	"context"
	"sync"
	"time"
)

// DefaultLoadingInterval is how long each loading line stays up.
const DefaultLoadingInterval = 2500 * time.Millisecond

// LoadingMessages is shown in order while an analysis is in flight.
var LoadingMessages = []string{
	"正在扫描你的反向操作...",
	"正在计算你为券商贡献的佣金...",
	"正在分析你高位站岗的英姿...",
	"正在识别你的'满仓踏空'基因...",
	"正在联系心理医生（划掉）AI大模型...",
	"别急，你的亏损很精彩，AI需要时间消化...",
}

// MessageAt returns the line that would be showing after elapsed time,
// for renderers that poll instead of holding a Rotator.
func MessageAt(elapsed, interval time.Duration) string {
	if interval <= 0 {
		interval = DefaultLoadingInterval
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return LoadingMessages[int(elapsed/interval)%len(LoadingMessages)]
}

// Rotator cycles through a fixed list of lines.
type Rotator struct {
	mu       sync.Mutex
	messages []string
	idx      int
}

// NewRotator copies messages; nil or empty falls back to LoadingMessages.
func NewRotator(messages []string) *Rotator {
	if len(messages) == 0 {
		messages = LoadingMessages
	}
	return &Rotator{messages: append([]string(nil), messages...)}
}

func (r *Rotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[r.idx]
}

func (r *Rotator) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx
}

// Advance moves to the next line, wrapping after the last, and returns it.
func (r *Rotator) Advance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idx = (r.idx + 1) % len(r.messages)
	return r.messages[r.idx]
}

// Run advances once per interval until ctx is done. onTick, if set,
// receives each new line.
func (r *Rotator) Run(ctx context.Context, interval time.Duration, onTick func(string)) {
	if interval <= 0 {
		interval = DefaultLoadingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := r.Advance()
			if onTick != nil {
				onTick(msg)
			}
		}
	}
}
