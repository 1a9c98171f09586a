package sse

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/robypag/scentsmith/pkg/progress"
)

// Hook is the client-side consumer of an event stream. It maintains two
// derived views keyed by job id: jobs still in flight and jobs that
// reached a terminal status. An event for a known id replaces that
// entry in place; an unknown id is appended.
//
// The hook does not reconnect when the stream drops; callers that need
// resilience open a new stream and a fresh hook.
type Hook struct {
	mu    sync.RWMutex
	order []string
	jobs  map[string]JobProgressFrame
}

// NewHook creates an empty hook.
func NewHook() *Hook {
	return &Hook{jobs: make(map[string]JobProgressFrame)}
}

// Consume reads event-stream frames until r is exhausted or fails.
// Connected and heartbeat frames are ignored.
func (h *Hook) Consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			data.WriteString(payload)
			continue
		}
		if line == "" && data.Len() > 0 {
			h.handle(data.String())
			data.Reset()
		}
	}
	if data.Len() > 0 {
		h.handle(data.String())
	}
	return scanner.Err()
}

func (h *Hook) handle(payload string) {
	var frame JobProgressFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return
	}
	if frame.Type != FrameJobProgress || frame.JobID == "" {
		return
	}
	h.Apply(frame)
}

// Apply merges one progress frame into the views, last write wins.
func (h *Hook) Apply(frame JobProgressFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, known := h.jobs[frame.JobID]; !known {
		h.order = append(h.order, frame.JobID)
	}
	h.jobs[frame.JobID] = frame
}

// Active returns jobs whose latest status is not terminal, in first-seen
// order.
func (h *Hook) Active() []JobProgressFrame {
	return h.view(func(s progress.Status) bool {
		return s != progress.StatusCompleted && s != progress.StatusFailed
	})
}

// Completed returns jobs whose latest status is terminal, in first-seen
// order.
func (h *Hook) Completed() []JobProgressFrame {
	return h.view(func(s progress.Status) bool {
		return s == progress.StatusCompleted || s == progress.StatusFailed
	})
}

func (h *Hook) view(keep func(progress.Status) bool) []JobProgressFrame {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]JobProgressFrame, 0, len(h.order))
	for _, id := range h.order {
		frame := h.jobs[id]
		if keep(frame.Status) {
			result = append(result, frame)
		}
	}
	return result
}
