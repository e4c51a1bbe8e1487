package epidemic

// Callback runs after a rule's overrides are applied. It may subscribe new rules to p.
type Callback func(rule *EventRule, p *Population)

// EventRule changes a population's rates when its condition becomes true.
//
// A rule is alive until it executes; afterwards it stays alive only if KeepAlive is set.
// Dead rules are purged before the next evaluation pass.
type EventRule struct {
	Name      string
	Condition Condition
	Overrides RateOverrides
	Callback  Callback
	KeepAlive bool

	dead      bool
	fired     int
	lastFired float64
}

// RuleOption configures an EventRule.
type RuleOption func(*EventRule)

// WithCallback sets the rule's callback.
func WithCallback(cb Callback) RuleOption {
	return func(r *EventRule) { r.Callback = cb }
}

// WithKeepAlive makes the rule fire every tick its condition holds.
func WithKeepAlive() RuleOption {
	return func(r *EventRule) { r.KeepAlive = true }
}

// NewEventRule creates an alive rule.
func NewEventRule(name string, cond Condition, overrides RateOverrides, opts ...RuleOption) *EventRule {
	r := &EventRule{Name: name, Condition: cond, Overrides: overrides}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Alive reports whether the rule will still be evaluated.
func (r *EventRule) Alive() bool { return !r.dead }

// Fired returns how many times the rule executed.
func (r *EventRule) Fired() int { return r.fired }

// LastFired returns the scheduler time of the latest execution (0 if never fired).
func (r *EventRule) LastFired() float64 { return r.lastFired }

// Check evaluates the condition. A rule without a condition never holds.
func (r *EventRule) Check(snap Snapshot) (bool, error) {
	if r.Condition == nil {
		return false, ErrUnsupportedExpr
	}
	return r.Condition.Holds(snap)
}
