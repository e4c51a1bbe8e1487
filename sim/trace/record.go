// Package trace provides event-trace recording for epidemic runs.
// This package has no dependencies on sim/ or its model packages; it stores pure data types.
package trace

// RuleRecord captures a single event rule execution.
type RuleRecord struct {
	Population string
	Rule       string
	Clock      float64
	Overrides  map[string]float64 // rate fields written by the rule (nil if none)
	Chained    int                // rules subscribed by the rule's callback
}

// ConditionErrorRecord captures a condition that could not be evaluated and was treated as false.
type ConditionErrorRecord struct {
	Population string
	Rule       string
	Clock      float64
	Err        string
}

// TerminationRecord captures a process that stopped for a model reason:
// a population going extinct or the agent run running out of infectious agents.
type TerminationRecord struct {
	Entity string
	Clock  float64
	Reason string
}
