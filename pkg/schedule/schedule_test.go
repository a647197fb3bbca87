package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ryxhub/flowengine/pkg/engine"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	mu        sync.Mutex
	schedules map[string]string
	err       error
}

func (s *staticSource) Scheduled(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.schedules))
	for k, v := range s.schedules {
		out[k] = v
	}

	return out, s.err
}

func (s *staticSource) set(schedules map[string]string) {
	s.mu.Lock()
	s.schedules = schedules
	s.mu.Unlock()
}

type recordingStarter struct {
	calls chan string
	err   error
}

func (r *recordingStarter) Run(_ context.Context, workflowID string) (models.RunSummary, error) {
	r.calls <- workflowID

	return models.RunSummary{RunID: "run-" + workflowID, WorkflowID: workflowID, Outcome: models.RunOutcomeSuccess}, r.err
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr  string
		valid bool
	}{
		{"*/5 * * * *", true},
		{"0 9 * * MON-FRI", true},
		{"@hourly", true},
		{"@every 30s", true},
		{"", false},
		{"not a cron", false},
		{"* * * * * *", false},
		{"61 * * * *", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.expr)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestScheduler_Sync(t *testing.T) {
	t.Parallel()

	source := &staticSource{schedules: map[string]string{
		"wf-1": "*/5 * * * *",
		"wf-2": "@hourly",
		"bad":  "every tuesday",
	}}
	s := New(source, &recordingStarter{calls: make(chan string, 1)}, slog.Default())

	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, 2, s.Len())

	first := s.entries["wf-1"].id

	source.set(map[string]string{"wf-1": "*/10 * * * *"})
	require.NoError(t, s.Sync(context.Background()))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "*/10 * * * *", s.entries["wf-1"].expr)
	assert.NotEqual(t, first, s.entries["wf-1"].id)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_SyncSourceError(t *testing.T) {
	t.Parallel()

	source := &staticSource{err: errors.New("store down")}
	s := New(source, &recordingStarter{calls: make(chan string, 1)}, slog.Default())

	err := s.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestScheduler_StartsRuns(t *testing.T) {
	t.Parallel()

	source := &staticSource{schedules: map[string]string{"wf-1": "@every 1s"}}
	starter := &recordingStarter{calls: make(chan string, 10)}
	s := New(source, starter, slog.Default(), WithResyncInterval(time.Hour))

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		assert.NoError(t, s.Stop(ctx))
	})

	select {
	case id := <-starter.calls:
		assert.Equal(t, "wf-1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run was not started")
	}
}

func TestScheduler_BusyWorkflowIsSkipped(t *testing.T) {
	t.Parallel()

	starter := &recordingStarter{
		calls: make(chan string, 1),
		err:   fmt.Errorf("start run: %w", engine.ErrWorkflowBusy),
	}
	s := New(&staticSource{}, starter, slog.Default())

	assert.NotPanics(t, s.job("wf-1"))
	assert.Equal(t, "wf-1", <-starter.calls)
}
