package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures rule executions, condition errors and terminations.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SimulationTrace collects event records during a run.
// A nil *SimulationTrace is valid and records nothing.
type SimulationTrace struct {
	RunID        string
	Level        TraceLevel
	Rules        []RuleRecord
	Errors       []ConditionErrorRecord
	Terminations []TerminationRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(runID string, level TraceLevel) *SimulationTrace {
	return &SimulationTrace{
		RunID:        runID,
		Level:        level,
		Rules:        make([]RuleRecord, 0),
		Errors:       make([]ConditionErrorRecord, 0),
		Terminations: make([]TerminationRecord, 0),
	}
}

func (st *SimulationTrace) enabled() bool {
	return st != nil && st.Level == TraceLevelEvents
}

// RecordRule appends a rule execution record.
func (st *SimulationTrace) RecordRule(record RuleRecord) {
	if st.enabled() {
		st.Rules = append(st.Rules, record)
	}
}

// RecordConditionError appends a condition error record.
func (st *SimulationTrace) RecordConditionError(record ConditionErrorRecord) {
	if st.enabled() {
		st.Errors = append(st.Errors, record)
	}
}

// RecordTermination appends a termination record.
func (st *SimulationTrace) RecordTermination(record TerminationRecord) {
	if st.enabled() {
		st.Terminations = append(st.Terminations, record)
	}
}
