package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/opcompile/internal/scheduler"
)

// ErrNotConnected is returned when the backend has no live connection.
var ErrNotConnected = errors.New("socketio backend is not connected")

// transport is the part of the socket.io client the backend depends on.
type transport interface {
	emit(event string, payload any)
	close()
}

// submitMessage is the payload of a compile:submit event.
type submitMessage struct {
	TaskID      uint64 `json:"task_id"`
	ThreadID    uint64 `json:"thread_id"`
	ContentType string `json:"content_type"`
	Payload     []byte `json:"payload"`
}

// finishedMessage is the payload of a compile:finished event.
type finishedMessage struct {
	scheduler.FinishedTask
	ThreadID uint64 `json:"thread_id"`
}

// Backend implements registry.Backend on top of a socket.io connection.
type Backend struct {
	logger *slog.Logger

	mu       sync.Mutex
	conn     transport
	finished map[scheduler.ThreadID][]scheduler.FinishedTask
	// fault is set once the connection breaks or a completion cannot be
	// attributed; every later call fails with it.
	fault error
}

func newBackend(logger *slog.Logger) *Backend {
	return &Backend{
		logger:   logger,
		finished: make(map[scheduler.ThreadID][]scheduler.FinishedTask),
	}
}

func (b *Backend) attach(t transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = t
}

func (b *Backend) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault == nil {
		b.logger.Error("Compiler connection failed.", "error", err)
		b.fault = err
	}
}

// SubmitTask emits the descriptor as a compile:submit event.
func (b *Backend) SubmitTask(_ context.Context, desc scheduler.Descriptor, task scheduler.TaskID, thread scheduler.ThreadID) error {
	b.mu.Lock()
	conn, fault := b.conn, b.fault
	b.mu.Unlock()
	if fault != nil {
		return fault
	}
	if conn == nil {
		return ErrNotConnected
	}
	conn.emit(SubmitEvent, submitMessage{
		TaskID:      uint64(task),
		ThreadID:    uint64(thread),
		ContentType: desc.ContentType,
		Payload:     desc.Payload,
	})
	b.logger.Debug("Emitted compile request.", "task", task, "thread", thread, "bytes", len(desc.Payload))
	return nil
}

// WaitAllFinished drains the completions buffered for the thread. Buffered
// completions are still delivered after a disconnect; once they are gone,
// polling fails.
func (b *Backend) WaitAllFinished(_ context.Context, thread scheduler.ThreadID) ([]scheduler.FinishedTask, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	done := b.finished[thread]
	if len(done) == 0 && b.fault != nil {
		return nil, b.fault
	}
	delete(b.finished, thread)
	return done, nil
}

// Close disconnects from the compiler.
func (b *Backend) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	if b.fault == nil {
		b.fault = ErrNotConnected
	}
	b.mu.Unlock()
	if conn != nil {
		conn.close()
	}
	return nil
}

// handleFinished buffers one compile:finished event.
func (b *Backend) handleFinished(data ...any) {
	msg, err := decodeFinished(data)
	if err != nil {
		b.fail(fmt.Errorf("unreadable %s event: %w", FinishedEvent, err))
		return
	}
	thread := scheduler.ThreadID(msg.ThreadID)
	b.mu.Lock()
	b.finished[thread] = append(b.finished[thread], msg.FinishedTask)
	b.mu.Unlock()
}

// decodeFinished accepts the event as a decoded JSON object, a JSON string
// or raw bytes.
func decodeFinished(data []any) (*finishedMessage, error) {
	if len(data) == 0 {
		return nil, errors.New("event carries no payload")
	}
	var raw []byte
	switch v := data[0].(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	var msg finishedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.TaskID == 0 {
		return nil, errors.New("missing task_id")
	}
	return &msg, nil
}
