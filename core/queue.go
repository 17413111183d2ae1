package core

import (
	"context"
	"sync"

	"github.com/sisu-network/lib/log"
	"github.com/sisu-network/proposal-relay/metrics"
	"github.com/sisu-network/proposal-relay/types"
	"go.uber.org/atomic"
)

// RecordSink receives the outcome of a handled event together with the campaign that observed it.
type RecordSink func(campaign uint64, record *types.LogRecord)

type job struct {
	campaign uint64
	event    *types.ProposalEvent
}

// TransferQueue runs the event handler for queued events on a single worker goroutine, in
// enqueue order. Only one handler call is in flight at any time.
type TransferQueue struct {
	jobs    chan *job
	handler EventHandler
	sink    RecordSink

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once
	started  *atomic.Bool
	stopped  *atomic.Bool
	length   *atomic.Int64
}

func NewTransferQueue(size int, handler EventHandler, sink RecordSink) *TransferQueue {
	return &TransferQueue{
		jobs:     make(chan *job, size),
		handler:  handler,
		sink:     sink,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		stopOnce: &sync.Once{},
		started:  atomic.NewBool(false),
		stopped:  atomic.NewBool(false),
		length:   atomic.NewInt64(0),
	}
}

func (q *TransferQueue) Start() {
	if !q.started.CAS(false, true) {
		return
	}

	go q.loop()
}

// Stop stops the worker after the job in progress, if any. Each queued job that was not handled
// gets a transfer_failed record.
func (q *TransferQueue) Stop() {
	first := false
	q.stopOnce.Do(func() {
		first = true
		q.stopped.Store(true)
		close(q.stopCh)
	})

	if q.started.Load() {
		<-q.doneCh
	}

	if first {
		q.drain()
	}
}

func (q *TransferQueue) drain() {
	if n := q.Len(); n > 0 {
		log.Warnf("Transfer queue stopped with %d queued events", n)
	}

	for {
		select {
		case j := <-q.jobs:
			metrics.QueueLength.Set(float64(q.length.Dec()))
			q.fail(j)
		default:
			return
		}
	}
}

// Enqueue adds an event without blocking. It fails when the queue is full or stopped.
func (q *TransferQueue) Enqueue(campaign uint64, event *types.ProposalEvent) error {
	if q.stopped.Load() {
		return types.ErrQueueStopped
	}

	select {
	case q.jobs <- &job{campaign: campaign, event: event}:
		metrics.QueueLength.Set(float64(q.length.Inc()))
		return nil
	default:
		return types.ErrQueueFull
	}
}

func (q *TransferQueue) fail(j *job) {
	if q.sink != nil {
		q.sink(j.campaign, types.NewEventRecord(types.RecordTransferFailed, j.event, "relay stopped"))
	}
}

func (q *TransferQueue) Len() int {
	return int(q.length.Load())
}

func (q *TransferQueue) loop() {
	defer close(q.doneCh)

	for {
		select {
		case <-q.stopCh:
			log.Info("Transfer queue stopped")
			return
		case j := <-q.jobs:
			metrics.QueueLength.Set(float64(q.length.Dec()))

			// Favor stop over the remaining jobs.
			if q.stopped.Load() {
				q.fail(j)
				return
			}

			q.process(j)
		}
	}
}

func (q *TransferQueue) process(j *job) {
	log.Verbosef("Handling event %s", j.event)

	record := q.handler.Handle(context.Background(), j.event)
	if record == nil {
		return
	}

	if q.sink != nil {
		q.sink(j.campaign, record)
	}
}
