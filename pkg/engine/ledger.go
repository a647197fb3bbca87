package engine

import "github.com/ryxhub/flowengine/pkg/models"

// Ledger is the append-only run history of every node. It is guarded by the owning
// workflow's lock; only the state machine appends to it.
type Ledger struct {
	records map[string][]models.RunRecord
}

func newLedger() *Ledger {
	return &Ledger{records: make(map[string][]models.RunRecord)}
}

func (l *Ledger) appendRun(nodeID string, record models.RunRecord) {
	l.records[nodeID] = append(l.records[nodeID], record)
}

// History returns a copy of the node's records, oldest first. Unknown nodes have none.
func (l *Ledger) History(nodeID string) []models.RunRecord {
	records := l.records[nodeID]
	if len(records) == 0 {
		return nil
	}

	return append([]models.RunRecord(nil), records...)
}

func (l *Ledger) restore(nodeID string, records []models.RunRecord) {
	if len(records) == 0 {
		return
	}

	l.records[nodeID] = append([]models.RunRecord(nil), records...)
}

// forget drops the history of a removed node.
func (l *Ledger) forget(nodeID string) {
	delete(l.records, nodeID)
}
