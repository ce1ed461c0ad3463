package classifier

import (
	"fmt"
)

// DefaultThreshold is the policy constant gating automatic handling.
// The classifier provider is instructed to null its own guess below
// this, but its self-gating is advisory only: the gate re-checks here.
const DefaultThreshold = 0.70

// Route is the handling decision for a classified submission
type Route int

const (
	// RouteAutoEligible proceeds to eligibility validation
	RouteAutoEligible Route = iota
	// RouteDeferredWithGuess parks the request for manual review,
	// keeping the classifier's best guess
	RouteDeferredWithGuess
	// RouteDeferredUnclassified parks the request with no category
	RouteDeferredUnclassified
)

func (r Route) String() string {
	switch r {
	case RouteAutoEligible:
		return "auto_eligible"
	case RouteDeferredWithGuess:
		return "deferred_with_guess"
	default:
		return "deferred_unclassified"
	}
}

// Decision is the gate's routing outcome
type Decision struct {
	Route      Route
	CategoryID *string
	Confidence float64
	Rationale  string
}

// Gate interprets classifier output and decides automatic versus
// deferred handling
type Gate struct {
	threshold float64
}

// NewGate creates a gate with the default policy threshold
func NewGate() *Gate {
	return &Gate{threshold: DefaultThreshold}
}

// NewGateWithThreshold creates a gate with an explicit threshold
func NewGateWithThreshold(threshold float64) (*Gate, error) {
	if threshold <= 0.0 || threshold > 1.0 {
		return nil, fmt.Errorf("threshold must be in (0.0, 1.0], got %.2f", threshold)
	}
	return &Gate{threshold: threshold}, nil
}

// Threshold returns the gate's confidence threshold
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Route decides how a classified submission is handled. Confidence
// exactly at the threshold is auto-eligible.
func (g *Gate) Route(result *Result) Decision {
	if result == nil || result.CategoryID == nil {
		return Decision{
			Route:      RouteDeferredUnclassified,
			Confidence: confidenceOf(result),
			Rationale:  "classifier returned no category match",
		}
	}

	if result.Confidence < g.threshold {
		return Decision{
			Route:      RouteDeferredWithGuess,
			CategoryID: result.CategoryID,
			Confidence: result.Confidence,
			Rationale: fmt.Sprintf("confidence %.2f below threshold %.2f, deferring to manual review",
				result.Confidence, g.threshold),
		}
	}

	return Decision{
		Route:      RouteAutoEligible,
		CategoryID: result.CategoryID,
		Confidence: result.Confidence,
		Rationale: fmt.Sprintf("confidence %.2f meets threshold %.2f",
			result.Confidence, g.threshold),
	}
}

func confidenceOf(result *Result) float64 {
	if result == nil {
		return 0
	}
	return result.Confidence
}
