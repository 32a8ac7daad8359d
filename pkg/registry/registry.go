// Package registry holds the workflow rules known to an engine.
package registry

import (
	"log/slog"
	"sync"

	"github.com/dukex/caseflow/pkg/models"
)

// Rules stores workflow rules keyed by id, keeping registration order.
type Rules struct {
	logger *slog.Logger
	mu     sync.RWMutex
	rules  map[string]*models.WorkflowRule
	order  []string
}

// NewRules creates an empty rule registry.
func NewRules(logger *slog.Logger) *Rules {
	return &Rules{
		logger: logger.With("module", "rule_registry"),
		rules:  make(map[string]*models.WorkflowRule),
	}
}

// Register stores the rule under its id. Reusing an id silently replaces the
// previous rule, which keeps its original position in registration order.
func (r *Rules) Register(rule models.WorkflowRule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; exists {
		r.logger.Debug("Replacing rule", "rule_id", rule.ID)
	} else {
		r.order = append(r.order, rule.ID)
	}

	stored := rule
	r.rules[rule.ID] = &stored
}

// Get returns the rule registered under id.
func (r *Rules) Get(id string) (models.WorkflowRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return models.WorkflowRule{}, false
	}

	return *rule, true
}

// List returns all rules in registration order.
func (r *Rules) List() []models.WorkflowRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.WorkflowRule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.rules[id])
	}

	return out
}

// ByTrigger returns the enabled rules whose trigger type equals triggerType,
// in registration order.
func (r *Rules) ByTrigger(triggerType models.TriggerType) []models.WorkflowRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.WorkflowRule

	for _, id := range r.order {
		rule := r.rules[id]
		if rule.Enabled && rule.Trigger.Type == triggerType {
			out = append(out, *rule)
		}
	}

	return out
}

// Remove deletes a rule and reports whether it existed.
func (r *Rules) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return false
	}

	delete(r.rules, id)

	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return true
}

// Len returns the number of registered rules.
func (r *Rules) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rules)
}
