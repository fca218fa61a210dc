// Package notify provides the bounded notification queue used to hand commands
// and reference events from arbitrary goroutines to the single registry worker.
//
// A Queue is a fixed-capacity ring buffer protected by a mutex, paired with a
// one-slot wakeup channel. Enqueueing never blocks on the consumer; a full
// queue is reported as ErrQueueFull, or, through PutWait, after a bounded wait
// for the consumer to make room.
//
//	q := notify.New[string](1024)
//	_ = q.Put("hello")
//
//	<-q.Ready()
//	for _, item := range q.Drain() {
//	    fmt.Println(item)
//	}
package notify
