package operations

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"agrirank/pkg/contracts/events"
)

// Run states reported in snapshots.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Hub message types.
const (
	MessageRunEvent    = "run:event"
	MessageRunSnapshot = "run:snapshot"
)

// RunBroadcaster tracks every run it hears about. Each event is forwarded
// to the hub, followed by the complete snapshot of its run.
type RunBroadcaster struct {
	mu      sync.RWMutex
	runs    map[string]*RunSnapshot
	hub     Hub
	logger  *slog.Logger
	updates chan updateRequest
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// RunSnapshot is the state of one run at a point in time.
type RunSnapshot struct {
	RunID       string          `json:"run_id"`
	Status      string          `json:"status"`
	Stages      []StageSnapshot `json:"stages"`
	StartedAt   time.Time       `json:"started_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StageSnapshot is the latest status of one stage.
type StageSnapshot struct {
	Stage  events.RunStage        `json:"stage"`
	Status events.RunStatus       `json:"status"`
	Detail map[string]interface{} `json:"detail,omitempty"`
	At     time.Time              `json:"at"`
}

type updateRequest struct {
	event events.RunEvent
	done  chan struct{}
}

// NewRunBroadcaster starts a broadcaster. hub may be nil, in which case
// snapshots are only kept for polling.
func NewRunBroadcaster(hub Hub, logger *slog.Logger) *RunBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	rb := &RunBroadcaster{
		runs:    make(map[string]*RunSnapshot),
		hub:     hub,
		logger:  logger,
		updates: make(chan updateRequest, 100),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go rb.processUpdates()
	return rb
}

// processUpdates applies events one at a time so snapshots never interleave.
func (rb *RunBroadcaster) processUpdates() {
	for {
		select {
		case <-rb.stop:
			return
		case req := <-rb.updates:
			rb.apply(req.event)
			close(req.done)
		}
	}
}

// Publish records event and returns once the snapshot has been broadcast.
// Events published after Stop are dropped.
func (rb *RunBroadcaster) Publish(ctx context.Context, event events.RunEvent) {
	req := updateRequest{event: event, done: make(chan struct{})}
	select {
	case rb.updates <- req:
	case <-rb.stop:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-req.done:
	case <-rb.stop:
	}
}

func (rb *RunBroadcaster) apply(event events.RunEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	at := event.At
	if at.IsZero() {
		at = rb.now()
	}

	snapshot, ok := rb.runs[event.RunID]
	if !ok {
		snapshot = &RunSnapshot{RunID: event.RunID, Status: RunRunning, StartedAt: at}
		rb.runs[event.RunID] = snapshot
	}
	snapshot.UpdatedAt = at

	stage := StageSnapshot{Stage: event.Stage, Status: event.Status, Detail: event.Detail, At: at}
	replaced := false
	for i := range snapshot.Stages {
		if snapshot.Stages[i].Stage == event.Stage {
			snapshot.Stages[i] = stage
			replaced = true
			break
		}
	}
	if !replaced {
		snapshot.Stages = append(snapshot.Stages, stage)
	}

	switch {
	case event.Status == events.StatusFailed:
		snapshot.Status = RunFailed
		if msg, ok := event.Detail["error"].(string); ok {
			snapshot.Error = msg
		}
	case event.Status == events.StatusCompleted && event.Final:
		snapshot.Status = RunCompleted
	}
	if snapshot.Status != RunRunning && snapshot.CompletedAt == nil {
		done := at
		snapshot.CompletedAt = &done
	}

	event.At = at
	rb.broadcast(event, copySnapshot(snapshot))
}

func (rb *RunBroadcaster) broadcast(event events.RunEvent, snapshot *RunSnapshot) {
	if rb.hub == nil {
		return
	}
	rb.logger.Debug("broadcasting run snapshot",
		slog.String("run_id", snapshot.RunID),
		slog.String("status", snapshot.Status),
		slog.Int("stages", len(snapshot.Stages)),
	)
	rb.hub.Broadcast(MessageRunEvent, event)
	rb.hub.Broadcast(MessageRunSnapshot, snapshot)
}

// GetSnapshot returns a copy of the snapshot for runID.
func (rb *RunBroadcaster) GetSnapshot(runID string) (*RunSnapshot, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	snapshot, ok := rb.runs[runID]
	if !ok {
		return nil, false
	}
	return copySnapshot(snapshot), true
}

// Snapshots returns copies of all known runs, newest first.
func (rb *RunBroadcaster) Snapshots() []*RunSnapshot {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]*RunSnapshot, 0, len(rb.runs))
	for _, s := range rb.runs {
		out = append(out, copySnapshot(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out
}

// CleanupOld forgets finished runs that completed more than maxAge ago and
// returns how many were removed.
func (rb *RunBroadcaster) CleanupOld(maxAge time.Duration) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	now := rb.now()
	removed := 0
	for id, s := range rb.runs {
		if s.CompletedAt != nil && now.Sub(*s.CompletedAt) > maxAge {
			delete(rb.runs, id)
			removed++
		}
	}
	if removed > 0 {
		rb.logger.Info("cleaned up finished runs", slog.Int("removed", removed))
	}
	return removed
}

// Stop shuts the broadcaster down. It is safe to call more than once.
func (rb *RunBroadcaster) Stop() {
	rb.once.Do(func() { close(rb.stop) })
}

func copySnapshot(s *RunSnapshot) *RunSnapshot {
	c := *s
	c.Stages = make([]StageSnapshot, len(s.Stages))
	copy(c.Stages, s.Stages)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
