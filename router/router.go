// Package router selects which agent should handle an inbound message.
//
// Routing is deterministic keyword classification: ordered rules with
// disjoint keyword sets are evaluated in priority order and the first match
// wins; when nothing matches, the designated fallback (triage) agent is
// returned. Misrouting is a silent-correctness bug rather than a crash, so
// the policy stays explainable and the rule order is the documented
// tie-break. A learned classifier could replace this, but any replacement
// must preserve the total, deterministic Select contract.
package router

import (
	"strings"
	"unicode"
)

// Rule binds an agent name to the keywords that select it. Keywords are
// matched case-insensitively on word boundaries; multi-word keywords match as
// normalized phrases.
type Rule struct {
	Agent    string
	Keywords []string
}

// Router is a pure, total routing function over an ordered rule list.
type Router struct {
	rules    []Rule
	fallback string
}

// New constructs a router with the given fallback agent and ordered rules.
func New(fallback string, rules ...Rule) *Router {
	return &Router{rules: rules, fallback: fallback}
}

// Fallback returns the designated triage agent name.
func (r *Router) Fallback() string { return r.fallback }

// Rules returns the ordered rule list.
func (r *Router) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Select returns the name of the agent that should handle the message. It is
// total: when no rule matches, the fallback agent name is returned. Calling
// Select twice with identical arguments always yields the same answer.
func (r *Router) Select(message string) string {
	tokens := tokenize(message)
	normalized := " " + strings.Join(tokens, " ") + " "
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			phrase := " " + strings.Join(tokenize(kw), " ") + " "
			if phrase != "  " && strings.Contains(normalized, phrase) {
				return rule.Agent
			}
		}
	}
	return r.fallback
}

// tokenize lowercases and splits on non-alphanumeric boundaries.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
