// Package worker runs detached background tasks so callers can acknowledge
// a request before the work completes.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of background work. Tasks receive a background-derived
// context: an in-flight task is never cancelled, Close simply waits for it.
type Task func(ctx context.Context)

// Queue accepts work items for asynchronous execution. Services depend on
// this interface so tests can run submitted tasks inline.
type Queue interface {
	Submit(name string, task Task)
}

type queued struct {
	name string
	task Task
}

// Pool executes submitted tasks on a fixed set of goroutines.
type Pool struct {
	tasks chan queued
	wg    sync.WaitGroup
}

// NewPool creates a pool with the given number of workers, already running.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{tasks: make(chan queued, 64)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

// Submit enqueues a task. It blocks only when the buffer is full.
func (p *Pool) Submit(name string, task Task) {
	p.tasks <- queued{name: name, task: task}
}

// Close stops accepting work and waits for queued and in-flight tasks to
// finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for item := range p.tasks {
		p.execute(item)
	}
}

func (p *Pool) execute(item queued) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background task panicked", "task", item.name, "panic", r)
		}
	}()
	item.task(context.Background())
}
