package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

// TemplateRepository handles document template database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

// GetAll returns every template in insertion order.
func (r *TemplateRepository) GetAll(ctx context.Context) ([]models.DocumentTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT definition FROM document_templates ORDER BY position`)
	if err != nil {
		return nil, persistence.NewTemplateError("Templates", "", err)
	}

	defer closeRows(ctx, r.logger, rows)

	tpls := make([]models.DocumentTemplate, 0)

	for rows.Next() {
		tpl, err := scanDefinition[models.DocumentTemplate](rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		tpls = append(tpls, tpl)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return tpls, nil
}

// Save inserts or replaces a template.
func (r *TemplateRepository) Save(ctx context.Context, tpl models.DocumentTemplate) error {
	definition, err := json.Marshal(tpl)
	if err != nil {
		return persistence.NewTemplateError("SaveTemplate", tpl.ID, err)
	}

	query := `
		INSERT INTO document_templates (id, name, definition, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , definition = EXCLUDED.definition
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, tpl.ID, tpl.Name, string(definition), time.Now().UTC())
	if err != nil {
		return persistence.NewTemplateError("SaveTemplate", tpl.ID, err)
	}

	return nil
}

// Delete removes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM document_templates WHERE id = $1`, id)
	if err != nil {
		return persistence.NewTemplateError("DeleteTemplate", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTemplateError("DeleteTemplate", id, err)
	}

	if affected == 0 {
		return persistence.NewTemplateError("DeleteTemplate", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

// Templates returns every stored template.
func (p *Persistence) Templates(ctx context.Context) ([]models.DocumentTemplate, error) {
	return p.templateRepo.GetAll(ctx)
}

// SaveTemplate stores a template.
func (p *Persistence) SaveTemplate(ctx context.Context, tpl models.DocumentTemplate) error {
	return p.templateRepo.Save(ctx, tpl)
}

// DeleteTemplate removes a stored template.
func (p *Persistence) DeleteTemplate(ctx context.Context, id string) error {
	return p.templateRepo.Delete(ctx, id)
}
