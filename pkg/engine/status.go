package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/ryxhub/flowengine/pkg/events"
	"github.com/ryxhub/flowengine/pkg/models"
)

// transitions is the node status state machine. idle -> error is only taken for a node whose
// upstream failed: it ends in error without its work ever running.
var transitions = map[models.NodeStatus][]models.NodeStatus{
	models.NodeStatusIdle:      {models.NodeStatusRunning, models.NodeStatusError},
	models.NodeStatusRunning:   {models.NodeStatusSuccess, models.NodeStatusError, models.NodeStatusCancelled},
	models.NodeStatusSuccess:   {models.NodeStatusIdle},
	models.NodeStatusError:     {models.NodeStatusIdle},
	models.NodeStatusCancelled: {models.NodeStatusIdle},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to models.NodeStatus) bool {
	return slices.Contains(transitions[from], to)
}

// stepInfo is the context a transition is made in.
type stepInfo struct {
	runID  string
	detail string
	at     time.Time
}

// transition moves n to the target status and applies the side effects: a start marker log
// line when entering running, and a run record plus closing log line when entering a terminal
// status. Callers hold w.mu.
func (w *Workflow) transition(n *node, to models.NodeStatus, info stepInfo) error {
	from := n.status

	if !CanTransition(from, to) {
		err := &TransitionError{NodeID: n.id, From: from, To: to}
		if strictTransitions {
			panic(err)
		}

		w.logger.Error("Rejected node status transition", "node_id", n.id, "from", from, "to", to)

		return err
	}

	if info.at.IsZero() {
		info.at = w.now()
	}

	n.status = to

	switch {
	case to == models.NodeStatusRunning:
		n.startedAt = info.at
		w.appendLog(n, info.runID, fmt.Sprintf("%s ▶ started (run %s)", info.at.Format(time.RFC3339), info.runID))

	case to.IsTerminal():
		started := n.startedAt
		if started.IsZero() {
			started = info.at
		}

		outcome, _ := models.OutcomeFor(to)
		w.ledger.appendRun(n.id, models.RunRecord{
			RunID:     info.runID,
			StartedAt: started,
			EndedAt:   info.at,
			Outcome:   outcome,
			Detail:    info.detail,
			Duration:  info.at.Sub(started),
		})

		line := fmt.Sprintf("%s ■ %s", info.at.Format(time.RFC3339), outcome)
		if info.detail != "" {
			line += ": " + info.detail
		}

		w.appendLog(n, info.runID, line)

	case to == models.NodeStatusIdle:
		n.startedAt = time.Time{}
	}

	w.emit(events.NodeStatusChanged{
		BaseEvent: w.baseEvent(events.NodeStatusChangedEvent, info.runID),
		NodeID:    n.id,
		From:      from,
		To:        to,
		Detail:    info.detail,
	})

	return nil
}
