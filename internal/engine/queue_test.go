package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(StartEvent("i1"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, EventDragStart, got.Type)
	assert.Equal(t, "i1", got.ID)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	q.Enqueue(StartEvent("A"))
	q.Enqueue(CancelEvent())
	q.Enqueue(StartEvent("C"))

	e1, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "A", e1.ID)

	e2, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, EventDragCancel, e2.Type)

	e3, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "C", e3.ID)
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignalsEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(StartEvent("i1"))
	}()

	select {
	case <-q.Wait():
		assert.Equal(t, 1, q.Len())
	case <-time.After(time.Second):
		t.Fatal("wait did not fire after enqueue")
	}
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close() // second close is a no-op

	_, open := <-q.Wait()
	assert.False(t, open, "wait channel should be closed")

	ok := q.Enqueue(StartEvent("late"))
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(StartEvent("1"))
	assert.Equal(t, 1, q.Len())

	q.Enqueue(StartEvent("2"))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(StartEvent(fmt.Sprintf("p%d-%d", producerID, i)))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		seen[e.ID] = true
	}
	assert.Len(t, seen, producers*eventsPerProducer)
}
