// Package redis provides Redis persistence for rules, templates and executions.
//
// Records are JSON values in hashes; sorted sets keep rule and template
// registration order and each rule's executions by start time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "caseflow"
	pingTimeout   = 5 * time.Second
)

// Persistence implements persistence.Persistence on a Redis client.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
	now    func() time.Time
}

// NewPersistence connects to the server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	p := NewWithClient(logger, redis.NewClient(opts), defaultPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err = p.HealthCheck(pingCtx)
	if err != nil {
		_ = p.client.Close()

		return nil, err
	}

	p.logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return p, nil
}

// NewWithClient wraps an existing client. Keys are namespaced under prefix.
func NewWithClient(logger *slog.Logger, client redis.UniversalClient, prefix string) *Persistence {
	return &Persistence{
		client: client,
		logger: logger.With("module", "redis_persistence"),
		prefix: prefix,
		now:    time.Now,
	}
}

func (p *Persistence) key(parts ...string) string {
	k := p.prefix
	for _, part := range parts {
		k += ":" + part
	}

	return k
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) saveOrdered(ctx context.Context, kind, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.key(kind), id, data)
		pipe.ZAddNX(ctx, p.key(kind, "order"), redis.Z{Score: float64(p.now().UnixNano()), Member: id})

		return nil
	})

	return err
}

func (p *Persistence) deleteOrdered(ctx context.Context, kind, id string) (bool, error) {
	var removed *redis.IntCmd

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, p.key(kind), id)
		pipe.ZRem(ctx, p.key(kind, "order"), id)

		return nil
	})
	if err != nil {
		return false, err
	}

	return removed.Val() > 0, nil
}

func listOrdered[T any](ctx context.Context, p *Persistence, kind string) ([]T, error) {
	ids, err := p.client.ZRange(ctx, p.key(kind, "order"), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	raw, err := p.client.HMGet(ctx, p.key(kind), ids...).Result()
	if err != nil {
		return nil, err
	}

	for i, item := range raw {
		data, ok := item.(string)
		if !ok {
			p.logger.WarnContext(ctx, "Ordered id without record", "kind", kind, "id", ids[i])

			continue
		}

		var value T

		err = json.Unmarshal([]byte(data), &value)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s %s: %w", kind, ids[i], err)
		}

		out = append(out, value)
	}

	return out, nil
}

// Rules returns every stored rule in first-save order.
func (p *Persistence) Rules(ctx context.Context) ([]models.WorkflowRule, error) {
	rules, err := listOrdered[models.WorkflowRule](ctx, p, "rules")
	if err != nil {
		return nil, persistence.NewRuleError("Rules", "", err)
	}

	return rules, nil
}

// RuleByID returns a stored rule.
func (p *Persistence) RuleByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	data, err := p.client.HGet(ctx, p.key("rules"), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
	}

	if err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	var rule models.WorkflowRule

	err = json.Unmarshal(data, &rule)
	if err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	return &rule, nil
}

// SaveRule stores a rule, stamping CreatedAt and UpdatedAt when unset.
func (p *Persistence) SaveRule(ctx context.Context, rule models.WorkflowRule) error {
	now := p.now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}

	err := p.saveOrdered(ctx, "rules", rule.ID, rule)
	if err != nil {
		return persistence.NewRuleError("SaveRule", rule.ID, err)
	}

	return nil
}

// DeleteRule removes a stored rule.
func (p *Persistence) DeleteRule(ctx context.Context, id string) error {
	removed, err := p.deleteOrdered(ctx, "rules", id)
	if err != nil {
		return persistence.NewRuleError("DeleteRule", id, err)
	}

	if !removed {
		return persistence.NewRuleError("DeleteRule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

// Templates returns every stored template in first-save order.
func (p *Persistence) Templates(ctx context.Context) ([]models.DocumentTemplate, error) {
	tpls, err := listOrdered[models.DocumentTemplate](ctx, p, "templates")
	if err != nil {
		return nil, persistence.NewTemplateError("Templates", "", err)
	}

	return tpls, nil
}

// SaveTemplate stores a template.
func (p *Persistence) SaveTemplate(ctx context.Context, tpl models.DocumentTemplate) error {
	err := p.saveOrdered(ctx, "templates", tpl.ID, tpl)
	if err != nil {
		return persistence.NewTemplateError("SaveTemplate", tpl.ID, err)
	}

	return nil
}

// DeleteTemplate removes a stored template.
func (p *Persistence) DeleteTemplate(ctx context.Context, id string) error {
	removed, err := p.deleteOrdered(ctx, "templates", id)
	if err != nil {
		return persistence.NewTemplateError("DeleteTemplate", id, err)
	}

	if !removed {
		return persistence.NewTemplateError("DeleteTemplate", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

// SaveExecution stores the full state of an execution.
func (p *Persistence) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	data, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.key("executions"), execution.ID, data)
		pipe.ZAdd(ctx, p.key("executions", "workflow", execution.WorkflowID), redis.Z{
			Score:  float64(execution.StartedAt.UnixMilli()),
			Member: execution.ID,
		})

		return nil
	})
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

// ExecutionByID returns a stored execution.
func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	data, err := p.client.HGet(ctx, p.key("executions"), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	var execution models.WorkflowExecution

	err = json.Unmarshal(data, &execution)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns every stored execution of one rule, oldest first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	ids, err := p.client.ZRange(ctx, p.key("executions", "workflow", workflowID), 0, -1).Result()
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
	}

	out := make([]*models.WorkflowExecution, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	raw, err := p.client.HMGet(ctx, p.key("executions"), ids...).Result()
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
	}

	for i, item := range raw {
		data, ok := item.(string)
		if !ok {
			continue
		}

		var execution models.WorkflowExecution

		err = json.Unmarshal([]byte(data), &execution)
		if err != nil {
			return nil, persistence.NewExecutionError("ExecutionsByWorkflow", ids[i], err)
		}

		out = append(out, &execution)
	}

	return out, nil
}
