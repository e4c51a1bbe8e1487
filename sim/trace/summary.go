package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalFirings    int
	ConditionErrors int
	Terminations    int
	UniqueRules     int
	FirstFiring     float64        // clock of the earliest rule execution (0 if none)
	LastFiring      float64        // clock of the latest rule execution (0 if none)
	FiringsByEntity map[string]int // population name → number of rule executions
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		FiringsByEntity: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalFirings = len(st.Rules)
	summary.ConditionErrors = len(st.Errors)
	summary.Terminations = len(st.Terminations)

	rules := make(map[string]bool)
	for i, r := range st.Rules {
		summary.FiringsByEntity[r.Population]++
		rules[r.Population+"/"+r.Rule] = true
		if i == 0 || r.Clock < summary.FirstFiring {
			summary.FirstFiring = r.Clock
		}
		if i == 0 || r.Clock > summary.LastFiring {
			summary.LastFiring = r.Clock
		}
	}
	summary.UniqueRules = len(rules)

	return summary
}
