// Package redis provides Redis persistence for workflow documents.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/ryxhub/flowengine/pkg/models"
	"github.com/ryxhub/flowengine/pkg/persistence"
)

const (
	workflowKeyPrefix = "workflow:"
	workflowIndexKey  = "workflows"
)

// Persistence keeps each workflow as a JSON string under "workflow:<id>" and tracks the ids in
// the "workflows" set.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects to a redis:// or rediss:// URL and verifies the connection.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	options, err := redis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("module", "redis")
	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewPersistenceWithClient(client, logger), nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(client redis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{client: client, logger: logger}
}

func workflowKey(id string) string {
	return workflowKeyPrefix + id
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Workflows returns all stored workflows, oldest first.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := p.client.SMembers(ctx, workflowIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow ids: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))
	if len(ids) == 0 {
		return workflows, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = workflowKey(id)
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	for i, value := range values {
		document, ok := value.(string)
		if !ok {
			// Listed in the index but the document is gone.
			p.logger.WarnContext(ctx, "workflow missing from index", "workflow_id", ids[i])

			continue
		}

		workflow, err := decode(document)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		if workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].ID < workflows[j].ID
		}

		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	document, err := p.client.Get(ctx, workflowKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	return decode(document)
}

// SaveWorkflow writes the document and its index entry in one MULTI/EXEC.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, persistence.ErrInvalidWorkflow)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	document, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, workflowKey(workflow.ID), document, 0)
		pipe.SAdd(ctx, workflowIndexKey, workflow.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	var deleted *redis.IntCmd

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, workflowKey(id))
		pipe.SRem(ctx, workflowIndexKey, id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func decode(document string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := json.Unmarshal([]byte(document), &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow document: %w", err)
	}

	return &workflow, nil
}
