package models

import "time"

// RunOutcome is how a node's (or a whole workflow's) run ended.
type RunOutcome string

const (
	RunOutcomeSuccess   RunOutcome = "success"
	RunOutcomeError     RunOutcome = "error"
	RunOutcomeCancelled RunOutcome = "cancelled"
)

// OutcomeFor maps a terminal node status to the outcome recorded in history.
func OutcomeFor(status NodeStatus) (RunOutcome, bool) {
	switch status {
	case NodeStatusSuccess:
		return RunOutcomeSuccess, true
	case NodeStatusError:
		return RunOutcomeError, true
	case NodeStatusCancelled:
		return RunOutcomeCancelled, true
	default:
		return "", false
	}
}

// RunRecord is one entry of a node's execution history.
type RunRecord struct {
	RunID     string        `json:"run_id"           yaml:"run_id"`
	StartedAt time.Time     `json:"started_at"       yaml:"started_at"`
	EndedAt   time.Time     `json:"ended_at"         yaml:"ended_at"`
	Outcome   RunOutcome    `json:"outcome"          yaml:"outcome"`
	Detail    string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Duration  time.Duration `json:"duration"         yaml:"duration"`
}

// RunSummary reports the result of one full pass over a workflow.
type RunSummary struct {
	RunID      string                `json:"run_id"`
	WorkflowID string                `json:"workflow_id"`
	Outcome    RunOutcome            `json:"outcome"`
	Order      []string              `json:"order"`
	StartedAt  time.Time             `json:"started_at"`
	EndedAt    time.Time             `json:"ended_at"`
	Statuses   map[string]NodeStatus `json:"statuses"`
	Failed     []string              `json:"failed,omitempty"`
	Cancelled  []string              `json:"cancelled,omitempty"`
}

// Count returns how many nodes ended the run with the given status.
func (s RunSummary) Count(status NodeStatus) int {
	n := 0

	for _, st := range s.Statuses {
		if st == status {
			n++
		}
	}

	return n
}
