// Package commandqueue serializes work per lane.
//
// Invariants:
// - Tasks in the same lane execute one at a time in FIFO order.
// - Tasks in different lanes may execute concurrently.
// - A lane exists only while it has queued or running tasks.
//
// Usage:
//
//	queue := commandqueue.New(logger)
//	defer queue.Close()
//	result, err := queue.Enqueue(ctx, "session-42", func(ctx context.Context) (interface{}, error) {
//		return "ok", nil
//	})
package commandqueue
