package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

// RuleRepository handles rule-related database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

// GetAll returns every rule in insertion order.
func (r *RuleRepository) GetAll(ctx context.Context) ([]models.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT definition FROM rules ORDER BY position`)
	if err != nil {
		return nil, persistence.NewRuleError("Rules", "", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := scanDefinition[models.WorkflowRule](rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// GetByID returns the rule with the given id.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT definition FROM rules WHERE id = $1`, id)

	rule, err := scanDefinition[models.WorkflowRule](row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	return &rule, nil
}

// Save inserts or replaces a rule, keeping its original position and creation time.
func (r *RuleRepository) Save(ctx context.Context, rule models.WorkflowRule) error {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}

	definition, err := json.Marshal(rule)
	if err != nil {
		return persistence.NewRuleError("SaveRule", rule.ID, err)
	}

	query := `
		INSERT INTO rules (id, name, trigger_type, enabled, priority, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , trigger_type = EXCLUDED.trigger_type
		  , enabled = EXCLUDED.enabled
		  , priority = EXCLUDED.priority
		  , definition = EXCLUDED.definition
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, string(rule.Trigger.Type), rule.Enabled, rule.Priority,
		string(definition), rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRuleError("SaveRule", rule.ID, err)
	}

	return nil
}

// Delete removes a rule.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return persistence.NewRuleError("DeleteRule", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("DeleteRule", id, err)
	}

	if affected == 0 {
		return persistence.NewRuleError("DeleteRule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition[T any](row scanner) (T, error) {
	var (
		raw   []byte
		value T
	)

	err := row.Scan(&raw)
	if err != nil {
		return value, err
	}

	err = json.Unmarshal(raw, &value)
	if err != nil {
		return value, fmt.Errorf("failed to unmarshal definition: %w", err)
	}

	return value, nil
}

// Rules returns every stored rule.
func (p *Persistence) Rules(ctx context.Context) ([]models.WorkflowRule, error) {
	return p.ruleRepo.GetAll(ctx)
}

// RuleByID returns a stored rule.
func (p *Persistence) RuleByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	return p.ruleRepo.GetByID(ctx, id)
}

// SaveRule stores a rule.
func (p *Persistence) SaveRule(ctx context.Context, rule models.WorkflowRule) error {
	return p.ruleRepo.Save(ctx, rule)
}

// DeleteRule removes a stored rule.
func (p *Persistence) DeleteRule(ctx context.Context, id string) error {
	return p.ruleRepo.Delete(ctx, id)
}
