package reasoning

// Level is the categorical confidence of an analysis.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Rank orders levels from low (0) to high (2).
func (l Level) Rank() int {
	switch l {
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}

// Default supported/total ratios at or above which confidence is high or
// medium.
const (
	HighRatio   = 0.7
	MediumRatio = 0.4
)

// Thresholds are the ratio cut-offs used by ConfidenceFor.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds returns HighRatio and MediumRatio.
func DefaultThresholds() Thresholds {
	return Thresholds{High: HighRatio, Medium: MediumRatio}
}

// Normalize replaces out-of-range thresholds with the defaults.
func (t Thresholds) Normalize() Thresholds {
	if t.High <= 0 || t.High > 1 || t.Medium <= 0 || t.Medium > t.High {
		return DefaultThresholds()
	}
	return t
}

// Level maps a claim ratio to a confidence level. Unavailable retrieval caps
// the result at Low.
func (t Thresholds) Level(supported, total int, retrievalAvailable bool) Level {
	if !retrievalAvailable || total <= 0 || supported <= 0 {
		return Low
	}
	t = t.Normalize()
	ratio := float64(supported) / float64(total)
	switch {
	case ratio >= t.High:
		return High
	case ratio >= t.Medium:
		return Medium
	default:
		return Low
	}
}

// ConfidenceFor applies the default thresholds.
func ConfidenceFor(supported, total int, retrievalAvailable bool) Level {
	return DefaultThresholds().Level(supported, total, retrievalAvailable)
}
