package scheduler

import "sync/atomic"

// Context owns the id counters shared by every calling thread. Create one per
// process and keep it for the process lifetime; ids are never reused.
type Context struct {
	taskSeq  atomic.Uint64
	scopeSeq atomic.Int64
}

// NewContext returns a Context whose first task and scope ids are 1.
func NewContext() *Context {
	return &Context{}
}

// NextTaskID allocates a fresh task id. Safe for concurrent use.
func (c *Context) NextTaskID() TaskID {
	return TaskID(c.taskSeq.Add(1))
}

// NextScopeID allocates a fresh scope id. Safe for concurrent use.
func (c *Context) NextScopeID() ScopeID {
	return ScopeID(c.scopeSeq.Add(1))
}

// TasksAllocated returns how many task ids have been handed out so far.
func (c *Context) TasksAllocated() uint64 {
	return c.taskSeq.Load()
}
