package registry

// ReputationPolicy controls how task outcomes move an agent's reputation
// score. The weights are asymmetric: a failure costs more than a success
// earns, so a flaky agent trends down even at a 50% success rate.
type ReputationPolicy struct {
	Initial        int `json:"initial"`
	SuccessDelta   int `json:"success_delta"`
	FailurePenalty int `json:"failure_penalty"`
}

// DefaultReputationPolicy returns the standard weights: new agents start
// at 50, +1 per success, -2 per failure.
func DefaultReputationPolicy() ReputationPolicy {
	return ReputationPolicy{
		Initial:        50,
		SuccessDelta:   1,
		FailurePenalty: 2,
	}
}

// apply folds one task outcome into a reputation score, clamped to [0, 100].
func (p ReputationPolicy) apply(current int, success bool) int {
	if success {
		return clampReputation(current + p.SuccessDelta)
	}
	return clampReputation(current - p.FailurePenalty)
}

func clampReputation(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
