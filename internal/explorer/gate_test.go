package explorer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGate_StaysLoadingUntilLastRelease 测试引用计数：快的请求完成不会隐藏慢的请求
func TestGate_StaysLoadingUntilLastRelease(t *testing.T) {
	var edges []bool
	g := NewGate(func(loading bool) { edges = append(edges, loading) })

	slow := g.Acquire()
	fast := g.Acquire()
	assert.True(t, g.Loading())
	assert.Equal(t, 2, g.InFlight())

	fast()
	assert.True(t, g.Loading(), "slow operation still in flight")

	slow()
	assert.False(t, g.Loading())
	assert.Equal(t, []bool{true, false}, edges)
}

func TestGate_ReleaseIsIdempotent(t *testing.T) {
	g := NewGate(nil)
	first := g.Acquire()
	second := g.Acquire()

	first()
	first()
	assert.Equal(t, 1, g.InFlight())

	second()
	assert.Equal(t, 0, g.InFlight())
}

func TestGate_Concurrent(t *testing.T) {
	g := NewGate(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := g.Acquire()
			release()
		}()
	}
	wg.Wait()
	assert.False(t, g.Loading())
}

func TestGate_ConcurrentEdgesBalance(t *testing.T) {
	var mu sync.Mutex
	ups, downs := 0, 0
	g := NewGate(func(loading bool) {
		mu.Lock()
		defer mu.Unlock()
		if loading {
			ups++
		} else {
			downs++
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := g.Acquire()
			release()
		}()
	}
	wg.Wait()

	// 边沿的送达顺序不保证，但开关次数总是成对
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ups, downs)
	assert.GreaterOrEqual(t, ups, 1)
	assert.False(t, g.Loading())
}
