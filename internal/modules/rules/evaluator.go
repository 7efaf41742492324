package rules

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
)

// Evaluator derives the "restricted trading day" flag from the event
// collection and the enabled rule set. Evaluation is pure; a one-entry memo
// keyed on both inputs avoids rescanning on every render tick while
// guaranteeing recomputation the moment either input changes.
type Evaluator struct {
	rulesByID map[string]domain.NoTradeRule

	mu        sync.Mutex
	memoKey   uint64
	memoValue bool
	memoValid bool
	log       zerolog.Logger
}

// NewEvaluator creates an evaluator over the built-in rule set
func NewEvaluator(log zerolog.Logger) *Evaluator {
	byID := make(map[string]domain.NoTradeRule)
	for _, r := range Builtin() {
		byID[r.ID] = r
	}
	return &Evaluator{
		rulesByID: byID,
		log:       log.With().Str("component", "rules").Logger(),
	}
}

// IsRestrictedDay reports whether any high-impact event triggers an enabled
// restriction condition.
func (e *Evaluator) IsRestrictedDay(events []domain.NewsEvent, enabledRuleIDs []string) bool {
	key := fingerprint(events, enabledRuleIDs)

	e.mu.Lock()
	if e.memoValid && e.memoKey == key {
		value := e.memoValue
		e.mu.Unlock()
		return value
	}
	e.mu.Unlock()

	restricted := false
	for _, ev := range events {
		if e.IsRestrictedEvent(ev, enabledRuleIDs) {
			restricted = true
			break
		}
	}

	e.mu.Lock()
	e.memoKey = key
	e.memoValue = restricted
	e.memoValid = true
	e.mu.Unlock()

	return restricted
}

// IsRestrictedEvent reports whether a single event triggers a restriction:
// high impact, and either flagged no-trade by the analyst or matching an
// enabled rule's keywords.
func (e *Evaluator) IsRestrictedEvent(ev domain.NewsEvent, enabledRuleIDs []string) bool {
	if ev.Impact != domain.ImpactHigh {
		return false
	}
	if ev.IsNoTrade {
		return true
	}
	for _, id := range enabledRuleIDs {
		rule, ok := e.rulesByID[id]
		if !ok {
			continue
		}
		if keywordMatch(ev.Title, rule.Keywords) {
			return true
		}
	}
	return false
}

// keywordMatch does a case-insensitive substring test of each keyword
// against the title.
func keywordMatch(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// fingerprint hashes everything the evaluation depends on: per-event
// identity, title, impact and no-trade flag, plus the enabled set (order
// independent).
func fingerprint(events []domain.NewsEvent, enabledRuleIDs []string) uint64 {
	h := fnv.New64a()
	for _, ev := range events {
		h.Write([]byte(ev.ID))
		h.Write([]byte{0})
		h.Write([]byte(ev.Title))
		h.Write([]byte{0})
		h.Write([]byte(ev.Impact))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatBool(ev.IsNoTrade)))
		h.Write([]byte{0xff})
	}
	sorted := append([]string(nil), enabledRuleIDs...)
	sort.Strings(sorted)
	for _, id := range sorted {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
