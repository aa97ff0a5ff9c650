// Package migration upgrades license documents written by older versions of
// the generator to the shape current consumers expect.
package migration

import (
	"fmt"
	"log/slog"

	"rcslicense/internal/document"
)

// Result describes a migration run.
type Result struct {
	// Applied lists the IDs of the rules that changed the document.
	Applied []string
	// NumericVersionOrder is false when a version threshold had to be
	// compared as text because the document version is not dotted-numeric.
	NumericVersionOrder bool
}

// Engine runs migration rules in order.
type Engine struct {
	rules  []Rule
	logger *slog.Logger
}

// NewEngine creates an engine running rules in the given order. A nil slice
// selects DefaultRules.
func NewEngine(logger *slog.Logger, rules []Rule) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{
		rules:  rules,
		logger: logger.With(slog.String("component", "migration")),
	}
}

// Rules returns the rules in execution order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Migrate applies every rule whose version threshold covers the document.
// Rules never change the version field. Running Migrate again on its own
// output applies nothing for documents above 9.2.
func (e *Engine) Migrate(doc *document.Document) (Result, error) {
	result := Result{NumericVersionOrder: true}

	for _, rule := range e.rules {
		version, err := doc.Version()
		if err != nil {
			return result, err
		}

		if rule.MaxVersion != "" {
			cmp, numeric := document.CompareVersions(version, rule.MaxVersion)
			if !numeric {
				result.NumericVersionOrder = false
			}
			if cmp > 0 {
				continue
			}
		}

		changed, err := rule.Apply(doc)
		if err != nil {
			return result, fmt.Errorf("migration %s failed: %w", rule.ID, err)
		}
		if !changed {
			continue
		}

		result.Applied = append(result.Applied, rule.ID)
		e.logger.Info("migration applied",
			slog.String("rule", rule.ID),
			slog.String("version", version),
		)
	}

	return result, nil
}
