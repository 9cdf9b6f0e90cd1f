package tool

import (
	"context"
	"sort"
)

// Capability describes one agent the system can hand a conversation to.
type Capability struct {
	Agent       string `json:"agent"`
	Description string `json:"description"`
}

// describeCapabilitiesTool reports which agents exist and what they do. It is
// the triage agent's introspection tool.
type describeCapabilitiesTool struct {
	lookup func() []Capability
}

// NewDescribeCapabilitiesTool constructs the introspection tool. The lookup
// function is evaluated per call so late-registered agents are visible.
func NewDescribeCapabilitiesTool(lookup func() []Capability) Tool {
	return &describeCapabilitiesTool{lookup: lookup}
}

func (t *describeCapabilitiesTool) Name() string { return "describe_capabilities" }

func (t *describeCapabilitiesTool) Description() string {
	return "List the available specialized agents and what each one can handle."
}

func (t *describeCapabilitiesTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *describeCapabilitiesTool) Call(_ context.Context, _ map[string]any) (any, error) {
	caps := t.lookup()
	sorted := make([]Capability, len(caps))
	copy(sorted, caps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Agent < sorted[j].Agent })
	return sorted, nil
}
