package jobs

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRunsJob(t *testing.T) {
	p := NewPool()
	defer p.KillAll()

	var ran int32
	var wg sync.WaitGroup
	wg.Add(1)
	p.Enqueue(Job{Type: CloseFile, Run: func() {
		atomic.StoreInt32(&ran, 1)
		wg.Done()
	}})

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestJobsOfSameTypeRunInOrder(t *testing.T) {
	p := NewPool()
	defer p.KillAll()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		p.Enqueue(Job{Type: LogFsync, Run: func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}})
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestDifferentTypesMakeIndependentProgress(t *testing.T) {
	p := NewPool()
	defer p.KillAll()

	blocker := make(chan struct{})
	p.Enqueue(Job{Type: LogFsync, Run: func() {
		<-blocker
	}})

	done := make(chan struct{})
	p.Enqueue(Job{Type: CloseFile, Run: func() {
		close(done)
	}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CloseFile job blocked behind an unrelated LogFsync job")
	}
	close(blocker)
}

func TestPendingReportsQueueDepth(t *testing.T) {
	p := NewPool()
	defer p.KillAll()

	blocker := make(chan struct{})
	p.Enqueue(Job{Type: AofRewritePrep, Run: func() { <-blocker }})
	for i := 0; i < 3; i++ {
		p.Enqueue(Job{Type: AofRewritePrep, Run: func() {}})
	}

	require.Eventually(t, func() bool {
		return p.Pending(AofRewritePrep) == 3
	}, time.Second, time.Millisecond)
	close(blocker)
}

func TestKillAllDrainsQueuedJobsThenStops(t *testing.T) {
	p := NewPool()
	var ran int32
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		p.Enqueue(Job{Type: CloseFile, Run: func() {
			atomic.AddInt32(&ran, 1)
			wg.Done()
		}})
	}
	wg.Wait()
	p.KillAll()
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
}
