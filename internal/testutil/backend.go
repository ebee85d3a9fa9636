package testutil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/specialistvlad/opcompile/internal/scheduler"
)

// TextContentType is the content type produced by TextAssembler.
const TextContentType = "text/x-opcompile-test"

// TextAssembler encodes a scope as "<node id>,<node id>#<slice>" so that a
// ScriptedBackend can tell submissions apart without a real codec.
var TextAssembler = scheduler.AssemblerFunc(func(_ context.Context, g *scheduler.ScopeGroup, meta scheduler.KernelMetadata) (scheduler.Descriptor, error) {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID())
	}
	payload := strings.Join(ids, ",") + "#" + strconv.Itoa(meta.SliceIndex)
	return scheduler.Descriptor{ContentType: TextContentType, Payload: []byte(payload)}, nil
})

// Submission is one SubmitTask call seen by a ScriptedBackend.
type Submission struct {
	Task   scheduler.TaskID
	Thread scheduler.ThreadID
	// Nodes is the comma-joined node ids of the submitted scope.
	Nodes string
	Slice int
	// Attempt counts earlier submissions of the same node set and slice.
	Attempt int
}

// Singleton reports whether the submission carries exactly one node.
func (s Submission) Singleton() bool {
	return !strings.Contains(s.Nodes, ",")
}

// ScriptedBackend is an in-memory scheduler.Backend. Every submission finishes
// immediately and is queued for its thread; Fail decides the outcome.
type ScriptedBackend struct {
	// Fail reports whether the submission's compile fails. Nil means never.
	Fail func(sub Submission) bool
	// SubmitErr, when set, is returned from every SubmitTask call.
	SubmitErr error
	// PollErr, when set, is returned from every WaitAllFinished call.
	PollErr error
	// PerPoll limits how many finished tasks one poll returns; 0 means all.
	PerPoll int
	// Reverse drains each thread's queue newest first.
	Reverse bool
	// Inject is appended to the next poll's result, once.
	Inject []scheduler.FinishedTask
	// EmptyPolls makes the first polls report nothing, to exercise the wait loop.
	EmptyPolls int

	mu          sync.Mutex
	queues      map[scheduler.ThreadID][]scheduler.FinishedTask
	submissions []Submission
	attempts    map[string]int
	polls       int
}

// NewScriptedBackend returns a backend whose compiles fail when fail says so.
func NewScriptedBackend(fail func(sub Submission) bool) *ScriptedBackend {
	return &ScriptedBackend{Fail: fail}
}

// FailNodes returns a Fail function that fails every submission containing
// one of the given node ids.
func FailNodes(ids ...string) func(Submission) bool {
	return func(sub Submission) bool {
		for _, part := range strings.Split(sub.Nodes, ",") {
			for _, id := range ids {
				if part == id {
					return true
				}
			}
		}
		return false
	}
}

// SubmitTask implements scheduler.Backend.
func (b *ScriptedBackend) SubmitTask(_ context.Context, desc scheduler.Descriptor, task scheduler.TaskID, thread scheduler.ThreadID) error {
	if b.SubmitErr != nil {
		return b.SubmitErr
	}
	nodes, slice, err := parseText(desc)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queues == nil {
		b.queues = make(map[scheduler.ThreadID][]scheduler.FinishedTask)
		b.attempts = make(map[string]int)
	}

	key := nodes + "#" + strconv.Itoa(slice)
	sub := Submission{Task: task, Thread: thread, Nodes: nodes, Slice: slice, Attempt: b.attempts[key]}
	b.attempts[key]++
	b.submissions = append(b.submissions, sub)

	ft := scheduler.FinishedTask{TaskID: task, Status: scheduler.TaskSuccess, Artifact: ArtifactFor(sub)}
	if b.Fail != nil && b.Fail(sub) {
		ft = scheduler.FinishedTask{TaskID: task, Status: scheduler.TaskFailed, Message: "scripted failure for " + nodes}
	}
	b.queues[thread] = append(b.queues[thread], ft)
	return nil
}

// WaitAllFinished implements scheduler.Backend.
func (b *ScriptedBackend) WaitAllFinished(_ context.Context, thread scheduler.ThreadID) ([]scheduler.FinishedTask, error) {
	if b.PollErr != nil {
		return nil, b.PollErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls++
	if b.polls <= b.EmptyPolls {
		return nil, nil
	}

	q := b.queues[thread]
	n := len(q)
	if b.PerPoll > 0 && b.PerPoll < n {
		n = b.PerPoll
	}
	var out []scheduler.FinishedTask
	if b.Reverse {
		out = append(out, q[len(q)-n:]...)
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		b.queues[thread] = q[:len(q)-n]
	} else {
		out = append(out, q[:n]...)
		b.queues[thread] = q[n:]
	}
	if len(b.Inject) > 0 {
		out = append(out, b.Inject...)
		b.Inject = nil
	}
	return out, nil
}

// Submissions returns every submission seen so far, in order.
func (b *ScriptedBackend) Submissions() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Submission(nil), b.submissions...)
}

// Polls returns how many times WaitAllFinished was called.
func (b *ScriptedBackend) Polls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

// ArtifactFor is the artifact a ScriptedBackend reports for a successful submission.
func ArtifactFor(sub Submission) scheduler.CompiledArtifact {
	return scheduler.CompiledArtifact{
		BinaryPath:  fmt.Sprintf("/kernels/%d.o", sub.Task),
		JSONPath:    fmt.Sprintf("/kernels/%d.json", sub.Task),
		TilingKey:   strconv.Itoa(sub.Slice),
		CompileInfo: "{}",
	}
}

func parseText(desc scheduler.Descriptor) (string, int, error) {
	if desc.ContentType != TextContentType {
		return "", 0, fmt.Errorf("scripted backend: unexpected content type %q", desc.ContentType)
	}
	nodes, slice, ok := strings.Cut(string(desc.Payload), "#")
	if !ok {
		return "", 0, fmt.Errorf("scripted backend: malformed payload %q", desc.Payload)
	}
	idx, err := strconv.Atoi(slice)
	if err != nil {
		return "", 0, fmt.Errorf("scripted backend: malformed slice in %q: %w", desc.Payload, err)
	}
	return nodes, idx, nil
}
