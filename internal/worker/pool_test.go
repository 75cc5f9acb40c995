package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkoff/pixbatch/internal/domain"
)

// stubTransformer drives the pool without touching real pixels.
type stubTransformer struct {
	calls   atomic.Int32
	inWork  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
	fn      func(src []byte) ([]byte, int, int, error)
}

func (s *stubTransformer) Process(src []byte, _ domain.EditSpec, _ domain.ResizeSpec, _ domain.OutputSpec) ([]byte, int, int, error) {
	s.calls.Add(1)
	cur := s.inWork.Add(1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	defer s.inWork.Add(-1)
	return s.fn(src)
}

func sources(names ...string) []*domain.SourceImage {
	out := make([]*domain.SourceImage, len(names))
	for i, n := range names {
		out[i] = &domain.SourceImage{Filename: n, Size: 10, Data: []byte(n)}
	}
	return out
}

func TestPoolRunKeepsInputOrder(t *testing.T) {
	transformer := &stubTransformer{
		delay: 5 * time.Millisecond,
		fn: func(src []byte) ([]byte, int, int, error) {
			return append([]byte("out:"), src...), 1, 1, nil
		},
	}

	pool := NewPool(4)
	results := pool.Run(context.Background(), sources("a.png", "b.png", "c.png"), transformer,
		domain.DefaultEditSpec(), domain.ResizeSpec{}, domain.OutputSpec{Format: "png"})

	require.Len(t, results, 3)
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		assert.Equal(t, i, results[i].Index)
		assert.Equal(t, name, results[i].OriginalFilename)
		assert.Equal(t, "out:"+name, string(results[i].Data))
		assert.True(t, results[i].Succeeded())
	}
}

func TestPoolRunIsolatesFailures(t *testing.T) {
	transformer := &stubTransformer{
		fn: func(src []byte) ([]byte, int, int, error) {
			if string(src) == "bad.png" {
				return nil, 0, 0, errors.New("decode exploded")
			}
			return []byte("ok"), 1, 1, nil
		},
	}

	pool := NewPool(2)
	results := pool.Run(context.Background(), sources("a.png", "bad.png", "c.png"), transformer,
		domain.DefaultEditSpec(), domain.ResizeSpec{}, domain.OutputSpec{Format: "png"})

	require.Len(t, results, 3)
	assert.True(t, results[0].Succeeded())
	assert.False(t, results[1].Succeeded())
	assert.Contains(t, results[1].Error, "decode exploded")
	assert.Nil(t, results[1].Data)
	assert.True(t, results[2].Succeeded())
}

func TestPoolRunConfinesPanics(t *testing.T) {
	transformer := &stubTransformer{
		fn: func(src []byte) ([]byte, int, int, error) {
			if string(src) == "boom.png" {
				panic("codec blew up")
			}
			return []byte("ok"), 1, 1, nil
		},
	}

	pool := NewPool(2)
	results := pool.Run(context.Background(), sources("a.png", "boom.png", "c.png"), transformer,
		domain.DefaultEditSpec(), domain.ResizeSpec{}, domain.OutputSpec{Format: "png"})

	require.Len(t, results, 3)
	assert.True(t, results[0].Succeeded())
	assert.False(t, results[1].Succeeded())
	assert.Contains(t, results[1].Error, "codec blew up")
	assert.True(t, results[2].Succeeded())
}

func TestPoolRunRespectsWorkerLimit(t *testing.T) {
	transformer := &stubTransformer{
		delay: 10 * time.Millisecond,
		fn: func(src []byte) ([]byte, int, int, error) {
			return []byte("ok"), 1, 1, nil
		},
	}

	pool := NewPool(2)
	names := make([]string, 12)
	for i := range names {
		names[i] = "img.png"
	}
	pool.Run(context.Background(), sources(names...), transformer,
		domain.DefaultEditSpec(), domain.ResizeSpec{}, domain.OutputSpec{Format: "png"})

	assert.Equal(t, int32(12), transformer.calls.Load())
	assert.LessOrEqual(t, transformer.maxSeen.Load(), int32(2))
}

func TestPoolRunCancelledContext(t *testing.T) {
	transformer := &stubTransformer{
		fn: func(src []byte) ([]byte, int, int, error) {
			return []byte("ok"), 1, 1, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(2)
	results := pool.Run(ctx, sources("a.png", "b.png"), transformer,
		domain.DefaultEditSpec(), domain.ResizeSpec{}, domain.OutputSpec{Format: "png"})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Succeeded())
		assert.Contains(t, r.Error, context.Canceled.Error())
	}
	assert.Equal(t, int32(0), transformer.calls.Load(), "no task starts after cancellation")
}

func TestNewPoolDefaultsToCPUCount(t *testing.T) {
	assert.Greater(t, NewPool(0).workers, 0)
	assert.Equal(t, 3, NewPool(3).workers)
}
