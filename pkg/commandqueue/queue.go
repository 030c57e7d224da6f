package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "redclaw.commandqueue"

// ErrClosed is returned for tasks enqueued after Close or dropped by it.
var ErrClosed = errors.New("command queue closed")

// Task represents an operation executed inside a lane
type Task func(ctx context.Context) (interface{}, error)

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	result     chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

type laneState struct {
	queue   []*taskRecord
	running bool
}

// CommandQueue runs tasks one at a time per lane.
type CommandQueue struct {
	lanes     map[string]*laneState
	taskIDSeq int
	depth     int
	closed    bool
	mu        sync.Mutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

// New creates an empty queue.
func New(logger zerolog.Logger) *CommandQueue {
	observability.EnsureRegistered()

	ctx, cancel := context.WithCancel(context.Background())
	return &CommandQueue{
		lanes:  make(map[string]*laneState),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "commandqueue").Logger(),
	}
}

// Enqueue appends task to lane and blocks until it has run. If ctx ends while
// the task is still queued, the task is skipped and ctx.Err() returned.
func (cq *CommandQueue) Enqueue(ctx context.Context, lane string, task Task) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "commandqueue.enqueue", attribute.String("lane", lane))
	defer span.End()

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil, ErrClosed
	}
	cq.taskIDSeq++
	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", lane, cq.taskIDSeq),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}
	ls, ok := cq.lanes[lane]
	if !ok {
		ls = &laneState{}
		cq.lanes[lane] = ls
	}
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	start := !ls.running
	ls.running = true
	cq.depth++
	observability.SetLaneDepth(cq.depth)
	if start {
		cq.wg.Add(1)
	}
	cq.mu.Unlock()

	logger := tracing.LoggerFromContext(ctx, cq.logger)
	logger.Debug().
		Str("lane", lane).
		Str("task_id", record.id).
		Int("queue_size", queueSize).
		Msg("Task enqueued")

	if start {
		go cq.drain(lane)
	}

	select {
	case res := <-record.result:
		tracing.EndSpan(span, res.err)
		return res.value, res.err
	case <-ctx.Done():
		tracing.EndSpan(span, ctx.Err())
		return nil, ctx.Err()
	}
}

// drain executes the lane's tasks until it is empty, then removes the lane.
func (cq *CommandQueue) drain(lane string) {
	defer cq.wg.Done()

	for {
		cq.mu.Lock()
		ls := cq.lanes[lane]
		if len(ls.queue) == 0 {
			delete(cq.lanes, lane)
			cq.mu.Unlock()
			return
		}
		record := ls.queue[0]
		ls.queue = ls.queue[1:]
		cq.mu.Unlock()

		cq.execute(lane, record)

		cq.mu.Lock()
		cq.depth--
		observability.SetLaneDepth(cq.depth)
		cq.mu.Unlock()
	}
}

func (cq *CommandQueue) execute(lane string, record *taskRecord) {
	if cq.ctx.Err() != nil {
		record.result <- taskResult{err: ErrClosed}
		return
	}
	if err := record.ctx.Err(); err != nil {
		record.result <- taskResult{err: err}
		return
	}

	wait := time.Since(record.enqueuedAt)
	observability.RecordLaneWait(wait)

	taskCtx, span := tracing.StartSpan(
		record.ctx,
		tracerName,
		"commandqueue.execute_task",
		attribute.String("lane", lane),
		attribute.String("task_id", record.id),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(taskCtx, cq.logger)

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(cq.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	start := time.Now()
	value, err := record.task(runCtx)
	duration := time.Since(start)

	record.result <- taskResult{value: value, err: err}
	tracing.EndSpan(span, err)

	event := logger.Debug()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Str("lane", lane).
		Str("task_id", record.id).
		Dur("wait", wait).
		Dur("duration", duration).
		Msg("Task finished")
}

// Pending returns the number of queued and running tasks in lane.
func (cq *CommandQueue) Pending(lane string) int {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	ls, ok := cq.lanes[lane]
	if !ok {
		return 0
	}
	n := len(ls.queue)
	if ls.running {
		n++
	}
	return n
}

// Lanes returns the number of lanes with work.
func (cq *CommandQueue) Lanes() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return len(cq.lanes)
}

// Close rejects new tasks, cancels running ones and waits for every lane to
// drain. Queued tasks fail with ErrClosed.
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	cq.closed = true
	cq.mu.Unlock()

	cq.cancel()
	cq.wg.Wait()
	return nil
}
