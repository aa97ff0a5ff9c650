package migration

import (
	"rcslicense/internal/document"
)

// Rule IDs, in the order they run.
const (
	RuleCorrelationToProfiling = "correlation-to-profiling"
	RuleProfilingToCorrelation = "profiling-to-correlation"
	RuleArchiveToBool          = "archive-int-to-bool"
	RuleWinMoPlatform          = "winmo-agent-platform"
	RuleScoutEnabled           = "scout-enabled"
)

// Rule is a single schema adjustment. Apply reports whether it changed the
// document; a rule that finds nothing to do must leave it untouched.
type Rule struct {
	ID string
	// MaxVersion limits the rule to documents whose version is at or below
	// it. Empty means every version.
	MaxVersion string
	Apply      func(doc *document.Document) (bool, error)
}

// DefaultRules returns the legacy migration chain.
//
// The first two rules undo each other on documents at or below 9.2: a
// correlation field is renamed to profiling and immediately renamed back.
// Documents issued by 9.2-era tools depend on ending up with correlation.
func DefaultRules() []Rule {
	return []Rule{
		{ID: RuleCorrelationToProfiling, Apply: renameField(document.FieldCorrelation, document.FieldProfiling)},
		{ID: RuleProfilingToCorrelation, MaxVersion: "9.2", Apply: renameField(document.FieldProfiling, document.FieldCorrelation)},
		{ID: RuleArchiveToBool, MaxVersion: "9.2", Apply: archiveToBool},
		{ID: RuleWinMoPlatform, MaxVersion: "9.3", Apply: winMoPlatform},
		{ID: RuleScoutEnabled, MaxVersion: "9.4", Apply: scoutEnabled},
	}
}

func renameField(from, to document.Symbol) func(*document.Document) (bool, error) {
	return func(doc *document.Document) (bool, error) {
		if !doc.Has(from) {
			return false, nil
		}
		v, _ := doc.Get(from)
		doc.Set(to, v)
		doc.Delete(from)
		return true, nil
	}
}

// archiveToBool turns the integer archive flag into the boolean older
// consumers expect. Only the integer zero is converted.
func archiveToBool(doc *document.Document) (bool, error) {
	v, ok := doc.Get(document.FieldArchive)
	if !ok {
		return false, nil
	}
	if n, isInt := document.Int(v); !isInt || n != 0 {
		return false, nil
	}
	doc.Set(document.FieldArchive, false)
	return true, nil
}

func winMoPlatform(doc *document.Document) (bool, error) {
	agents, err := doc.Agents()
	if err != nil {
		return false, err
	}
	if _, ok := agents.Get(document.PlatformWinMo); ok {
		return false, nil
	}
	agents.Set(document.PlatformWinMo, document.Pair(false, false))
	return true, nil
}

func scoutEnabled(doc *document.Document) (bool, error) {
	if v, _ := doc.Get(document.FieldScout); v == true {
		return false, nil
	}
	doc.Set(document.FieldScout, true)
	return true, nil
}
