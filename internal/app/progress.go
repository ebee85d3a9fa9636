package app

import (
	"sync"
	"sync/atomic"
)

// progress is the live view of a run served by the health endpoint.
type progress struct {
	mu    sync.RWMutex
	runID string

	threadsTotal atomic.Int64
	threadsDone  atomic.Int64
	nodesTotal   atomic.Int64
	nodesDone    atomic.Int64
	terminal     atomic.Int64
}

// progressSnapshot is the JSON body of the /progress endpoint.
type progressSnapshot struct {
	RunID        string `json:"run_id"`
	ThreadsTotal int64  `json:"threads_total"`
	ThreadsDone  int64  `json:"threads_done"`
	NodesTotal   int64  `json:"nodes_total"`
	NodesDone    int64  `json:"nodes_done"`
	Terminal     int64  `json:"terminal"`
}

func (p *progress) start(runID string, threads, nodes int) {
	p.mu.Lock()
	p.runID = runID
	p.mu.Unlock()
	p.threadsTotal.Store(int64(threads))
	p.threadsDone.Store(0)
	p.nodesTotal.Store(int64(nodes))
	p.nodesDone.Store(0)
	p.terminal.Store(0)
}

func (p *progress) threadFinished(nodes, terminal int) {
	p.nodesDone.Add(int64(nodes))
	p.terminal.Add(int64(terminal))
	p.threadsDone.Add(1)
}

func (p *progress) snapshot() progressSnapshot {
	p.mu.RLock()
	runID := p.runID
	p.mu.RUnlock()
	return progressSnapshot{
		RunID:        runID,
		ThreadsTotal: p.threadsTotal.Load(),
		ThreadsDone:  p.threadsDone.Load(),
		NodesTotal:   p.nodesTotal.Load(),
		NodesDone:    p.nodesDone.Load(),
		Terminal:     p.terminal.Load(),
	}
}
