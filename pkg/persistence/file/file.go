// Package file provides file-based persistence: one JSON document per record
// under <root>/<kind>/<id>.json.
package file

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

const (
	rulesDir      = "rules"
	templatesDir  = "templates"
	executionsDir = "executions"
	dirMode       = 0o750
	fileMode      = 0o600
)

// record keeps the first-save position so listings survive restarts in order.
type record[T any] struct {
	Position int64 `json:"position"`
	Value    T     `json:"value"`
}

// Persistence implements persistence.Persistence using the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewPersistence creates a file persistence rooted at root. A "file://" prefix is accepted.
func NewPersistence(root string) *Persistence {
	return &Persistence{
		root: strings.Replace(root, "file://", "", 1),
		now:  time.Now,
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists and is writable.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(fp.root, dirMode)
	if err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	tmp, err := os.CreateTemp(fp.root, ".health-*")
	if err != nil {
		return fmt.Errorf("file persistence root not writable: %w", err)
	}

	_ = tmp.Close()

	return os.Remove(tmp.Name())
}

func (fp *Persistence) path(kind, id string) string {
	return filepath.Join(fp.root, kind, url.PathEscape(id)+".json")
}

func (fp *Persistence) write(kind, id string, value any) error {
	err := os.MkdirAll(filepath.Join(fp.root, kind), dirMode)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	target := fp.path(kind, id)
	tmp := target + ".tmp"

	err = os.WriteFile(tmp, data, fileMode)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return os.Rename(tmp, target)
}

func read[T any](fp *Persistence, kind, id string) (T, error) {
	var value T

	data, err := os.ReadFile(fp.path(kind, id))
	if err != nil {
		return value, err
	}

	err = json.Unmarshal(data, &value)
	if err != nil {
		return value, fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}

	return value, nil
}

func readAll[T any](fp *Persistence, kind string) ([]T, error) {
	dir := filepath.Join(fp.root, kind)

	entries, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	out := make([]T, 0, len(entries))

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry, err)
		}

		var value T

		err = json.Unmarshal(data, &value)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", entry, err)
		}

		out = append(out, value)
	}

	return out, nil
}

func (fp *Persistence) remove(kind, id string) (bool, error) {
	err := os.Remove(fp.path(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (fp *Persistence) position(kind, id string) int64 {
	existing, err := read[record[json.RawMessage]](fp, kind, id)
	if err == nil {
		return existing.Position
	}

	return fp.now().UnixNano()
}

func values[T any](records []record[T]) []T {
	slices.SortStableFunc(records, func(a, b record[T]) int {
		return cmp.Compare(a.Position, b.Position)
	})

	out := make([]T, len(records))
	for i, r := range records {
		out[i] = r.Value
	}

	return out
}

// Rules returns every stored rule in first-save order.
func (fp *Persistence) Rules(_ context.Context) ([]models.WorkflowRule, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	records, err := readAll[record[models.WorkflowRule]](fp, rulesDir)
	if err != nil {
		return nil, persistence.NewRuleError("Rules", "", err)
	}

	return values(records), nil
}

// RuleByID returns a stored rule.
func (fp *Persistence) RuleByID(_ context.Context, id string) (*models.WorkflowRule, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	stored, err := read[record[models.WorkflowRule]](fp, rulesDir, id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
	}

	if err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	return &stored.Value, nil
}

// SaveRule stores a rule, stamping CreatedAt and UpdatedAt when unset.
func (fp *Persistence) SaveRule(_ context.Context, rule models.WorkflowRule) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	now := fp.now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}

	err := fp.write(rulesDir, rule.ID, record[models.WorkflowRule]{Position: fp.position(rulesDir, rule.ID), Value: rule})
	if err != nil {
		return persistence.NewRuleError("SaveRule", rule.ID, err)
	}

	return nil
}

// DeleteRule removes a stored rule.
func (fp *Persistence) DeleteRule(_ context.Context, id string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	removed, err := fp.remove(rulesDir, id)
	if err != nil {
		return persistence.NewRuleError("DeleteRule", id, err)
	}

	if !removed {
		return persistence.NewRuleError("DeleteRule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

// Templates returns every stored template in first-save order.
func (fp *Persistence) Templates(_ context.Context) ([]models.DocumentTemplate, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	records, err := readAll[record[models.DocumentTemplate]](fp, templatesDir)
	if err != nil {
		return nil, persistence.NewTemplateError("Templates", "", err)
	}

	return values(records), nil
}

// SaveTemplate stores a template.
func (fp *Persistence) SaveTemplate(_ context.Context, tpl models.DocumentTemplate) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	err := fp.write(templatesDir, tpl.ID, record[models.DocumentTemplate]{Position: fp.position(templatesDir, tpl.ID), Value: tpl})
	if err != nil {
		return persistence.NewTemplateError("SaveTemplate", tpl.ID, err)
	}

	return nil
}

// DeleteTemplate removes a stored template.
func (fp *Persistence) DeleteTemplate(_ context.Context, id string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	removed, err := fp.remove(templatesDir, id)
	if err != nil {
		return persistence.NewTemplateError("DeleteTemplate", id, err)
	}

	if !removed {
		return persistence.NewTemplateError("DeleteTemplate", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

// SaveExecution stores the full state of an execution.
func (fp *Persistence) SaveExecution(_ context.Context, execution *models.WorkflowExecution) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	err := fp.write(executionsDir, execution.ID, execution)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

// ExecutionByID returns a stored execution.
func (fp *Persistence) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	execution, err := read[models.WorkflowExecution](fp, executionsDir, id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns every stored execution of one rule, oldest first.
func (fp *Persistence) ExecutionsByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	all, err := readAll[models.WorkflowExecution](fp, executionsDir)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
	}

	out := make([]*models.WorkflowExecution, 0)

	for i := range all {
		if all[i].WorkflowID == workflowID {
			out = append(out, &all[i])
		}
	}

	slices.SortStableFunc(out, func(a, b *models.WorkflowExecution) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return out, nil
}
