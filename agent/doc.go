// Package agent provides the built-in agent implementations: ModelAgent, a
// specialized agent bound to an inference collaborator and a fixed tool
// subset, and TriageAgent, the fallback that introspects capabilities and
// hands conversations off to better-suited agents via delegate events.
//
// Agents never re-dispatch themselves; a delegate event is a request the
// session coordinator acts on, bounded by its handoff depth limit.
package agent
