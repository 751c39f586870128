// Package events defines the run lifecycle messages published by the ranking
// pipeline and streamed to websocket clients.
package events

import "time"

// RunStage names a step of a ranking run.
type RunStage string

const (
	StageLoad      RunStage = "load"
	StageClean     RunStage = "clean"
	StageAggregate RunStage = "aggregate"
	StageRank      RunStage = "rank"
	StageAssemble  RunStage = "assemble"
)

// RunStatus is the state a stage reports.
type RunStatus string

const (
	StatusStarted   RunStatus = "started"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunEvent is published for every stage transition of a ranking run. Final
// is set on the completed event of the last stage a run will execute.
type RunEvent struct {
	RunID  string                 `json:"run_id"`
	Stage  RunStage               `json:"stage"`
	Status RunStatus              `json:"status"`
	Detail map[string]interface{} `json:"detail,omitempty"`
	Final  bool                   `json:"final,omitempty"`
	At     time.Time              `json:"at"`
}
