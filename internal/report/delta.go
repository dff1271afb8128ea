package report

import "math"

// Delta compares a value with its previous-period counterpart
type Delta struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Percent  *int    `json:"percent"`
}

// NewDelta computes the rounded percentage change. Percent is nil when
// both values are zero and 100 when only the previous value is zero.
func NewDelta(current, previous float64) Delta {
	d := Delta{Current: current, Previous: previous}
	var p int
	switch {
	case previous == 0 && current == 0:
		return d
	case previous == 0:
		p = 100
	default:
		p = int(math.Round((current - previous) / previous * 100))
	}
	d.Percent = &p
	return d
}
