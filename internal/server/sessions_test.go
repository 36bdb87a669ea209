package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewSessionStore(time.Minute)
	st.now = func() time.Time { return now }

	idle := st.Create()
	busy := st.Create()
	busy.Ctrl.Start("data:image/png;base64,AA==")

	now = now.Add(30 * time.Second)
	fresh := st.Create()

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, st.Sweep())

	_, ok := st.Get(idle.ID)
	assert.False(t, ok)
	_, ok = st.Get(busy.ID)
	assert.True(t, ok)
	_, ok = st.Get(fresh.ID)
	assert.True(t, ok)
}

func TestSessionStoreGetRefreshes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewSessionStore(time.Minute)
	st.now = func() time.Time { return now }

	s := st.Create()
	now = now.Add(50 * time.Second)
	_, ok := st.Get(s.ID)
	require.True(t, ok)

	now = now.Add(50 * time.Second)
	assert.Zero(t, st.Sweep())
	_, ok = st.Get("")
	assert.False(t, ok)
}

func TestSessionStoreNoTTL(t *testing.T) {
	st := NewSessionStore(0)
	st.Create()
	assert.Zero(t, st.Sweep())
	assert.Equal(t, 1, st.Len())
}

func TestRunJanitorStops(t *testing.T) {
	st := NewSessionStore(time.Nanosecond)
	st.Create()

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		st.RunJanitor(ctx, time.Millisecond, func(n int) {
			select {
			case swept <- n:
			default:
			}
		})
		close(done)
	}()

	assert.Equal(t, 1, <-swept)
	cancel()
	<-done
	assert.Zero(t, st.Len())
}

func TestJanitorInterval(t *testing.T) {
	assert.Equal(t, time.Minute, janitorInterval(0))
	assert.Equal(t, time.Second, janitorInterval(2*time.Second))
	assert.Equal(t, 15*time.Minute, janitorInterval(time.Hour))
}
