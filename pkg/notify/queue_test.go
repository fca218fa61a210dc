package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNew_DefaultCapacity(t *testing.T) {
	q := New[int](0)

	if q.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", q.Cap(), DefaultCapacity)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := New[int](4)

	for i := 1; i <= 4; i++ {
		if err := q.Put(i); err != nil {
			t.Fatalf("Put(%d) error = %v, want nil", i, err)
		}
	}

	for want := 1; want <= 4; want++ {
		got, ok := q.Get()
		if !ok {
			t.Fatalf("Get() ok = false, want true")
		}
		if got != want {
			t.Errorf("Get() = %d, want %d", got, want)
		}
	}

	if _, ok := q.Get(); ok {
		t.Error("Get() on empty queue ok = true, want false")
	}
}

func TestQueue_Full(t *testing.T) {
	q := New[string](2)

	_ = q.Put("a")
	_ = q.Put("b")

	err := q.Put("c")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Put() on full queue error = %v, want ErrQueueFull", err)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

func TestQueue_WrapAround(t *testing.T) {
	q := New[int](3)

	for round := 0; round < 5; round++ {
		_ = q.Put(round * 10)
		_ = q.Put(round*10 + 1)

		items := q.Drain()
		if len(items) != 2 {
			t.Fatalf("round %d: Drain() returned %d items, want 2", round, len(items))
		}
		if items[0] != round*10 || items[1] != round*10+1 {
			t.Errorf("round %d: Drain() = %v", round, items)
		}
	}
}

func TestQueue_ReadyCoalesces(t *testing.T) {
	q := New[int](8)

	_ = q.Put(1)
	_ = q.Put(2)
	_ = q.Put(3)

	select {
	case <-q.Ready():
	default:
		t.Fatal("Ready() not signalled after Put")
	}

	select {
	case <-q.Ready():
		t.Fatal("Ready() signalled twice for coalesced puts")
	default:
	}

	if got := len(q.Drain()); got != 3 {
		t.Errorf("Drain() returned %d items, want 3", got)
	}
}

func TestQueue_PutWait_TimesOut(t *testing.T) {
	q := New[int](1)
	_ = q.Put(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := q.PutWait(ctx, 2)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("PutWait() error = %v, want ErrQueueFull", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Error("PutWait() returned before the context deadline")
	}
}

func TestQueue_PutWait_UnblocksOnGet(t *testing.T) {
	q := New[int](1)
	_ = q.Put(1)

	done := make(chan error, 1)
	go func() {
		done <- q.PutWait(context.Background(), 2)
	}()

	time.Sleep(10 * time.Millisecond)
	if got, _ := q.Get(); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PutWait() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PutWait() did not return after space was made")
	}

	if got, _ := q.Get(); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 200

	q := New[int](producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Put(i); err != nil {
					t.Errorf("Put() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("Len() = %d, want %d", q.Len(), producers*perProducer)
	}
}
