package sse

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/robypag/scentsmith/pkg/progress"
)

// Frame types carried on the event stream.
const (
	FrameConnected   = "connected"
	FrameJobProgress = "job_progress"
	FrameHeartbeat   = "heartbeat"
)

// ConnectedFrame is emitted once, immediately after the stream opens.
type ConnectedFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatFrame defeats idle-connection timeouts.
type HeartbeatFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// JobProgressFrame narrates one pipeline stage boundary. Timestamp is
// assigned by the gateway at forward time, not by the worker.
type JobProgressFrame struct {
	Type      string          `json:"type"`
	JobID     string          `json:"jobId"`
	Status    progress.Status `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

func newConnectedFrame() ConnectedFrame {
	return ConnectedFrame{Type: FrameConnected, Timestamp: time.Now().UTC()}
}

func newHeartbeatFrame() HeartbeatFrame {
	return HeartbeatFrame{Type: FrameHeartbeat, Timestamp: time.Now().UTC()}
}

func newJobProgressFrame(msg progress.Message) JobProgressFrame {
	return JobProgressFrame{
		Type:      FrameJobProgress,
		JobID:     msg.JobID,
		Status:    msg.Status,
		Progress:  msg.Percentage,
		Message:   msg.Event.Message,
		Timestamp: time.Now().UTC(),
	}
}

// writeFrame encodes one frame in text/event-stream format and flushes
// it to the client.
func writeFrame(w *bufio.Writer, frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
