package trust

// Outcome identifies how a claim request concluded for a user; each outcome
// carries a fixed trust-score delta.
type Outcome string

const (
	OutcomeReturn       Outcome = "RETURN"
	OutcomeHelpedReturn Outcome = "HELPED_RETURN"
	OutcomeFalseClaim   Outcome = "FALSE_CLAIM"
)

const (
	// MinScore and MaxScore bound every adjusted trust score.
	MinScore = 0
	MaxScore = 100
)

var outcomeDelta = map[Outcome]int{
	OutcomeReturn:       10,
	OutcomeHelpedReturn: 5,
	OutcomeFalseClaim:   -25,
}

// Delta returns the score change for the outcome and whether the outcome is
// known.
func Delta(o Outcome) (int, bool) {
	d, ok := outcomeDelta[o]
	return d, ok
}

// Clamp bounds a raw score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
