// Package worker provides an asynchronous pool that drains event publishing
// off the write path.
//
// Services call Enqueue after a durable write; workers hand the event to the
// configured eventstream.Publisher in the background. The queue is bounded:
// when it is full the job is dropped and logged rather than blocking the
// caller, since events are best-effort by contract.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/SaintNick1214/cortex/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool. Exactly one payload field is
// set.
type Job struct {
	FactRevised *eventstream.FactRevisedEvent
	SpacePurged *eventstream.SpacePurgedEvent
}

func (j Job) eventType() string {
	switch {
	case j.FactRevised != nil:
		return j.FactRevised.EventType
	case j.SpacePurged != nil:
		return j.SpacePurged.EventType
	}
	return "unknown"
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives the events. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for publishing by the worker pool.
// Returns true if enqueued, false if the queue is full and the job dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("event queued",
			zap.String("event_type", job.eventType()),
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, job dropped",
			zap.String("event_type", job.eventType()),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("publish worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	var err error
	switch {
	case job.FactRevised != nil:
		err = p.config.Publisher.PublishFactRevised(ctx, job.FactRevised)
	case job.SpacePurged != nil:
		err = p.config.Publisher.PublishSpacePurged(ctx, job.SpacePurged)
	default:
		p.logger.Warn("job carried no event payload")
		return
	}

	if err != nil {
		p.logger.Error("async event publish failed",
			zap.String("event_type", job.eventType()),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("event published",
		zap.String("event_type", job.eventType()),
	)
}
