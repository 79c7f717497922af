// Package deviation buckets plan-vs-actual differences into the criticality
// tiers used across the dashboard.
package deviation

import "math"

// Tier is the criticality bucket of a deviation. The cutoffs are
// business-meaningful: the status matrix, the forecast table and the summary
// semaphores all key their colors off these three values.
type Tier string

const (
	TierOK       Tier = "ok"
	TierWatch    Tier = "watch"
	TierCritical Tier = "critical"
)

// Tier thresholds in percent. Strictly above 20 is critical; above 10 up to
// and including 20 is watch. These are display tiers only - the 15% edit
// materiality threshold lives in the gate package and is deliberately a
// separate constant.
const (
	criticalAbovePercent = 20.0
	watchAbovePercent    = 10.0
)

// Result holds a classified deviation. Sign convention: positive means the
// actual exceeds the plan (over budget), which renders red; negative renders
// green.
type Result struct {
	Absolute float64
	Percent  float64
	Tier     Tier
}

// Classify computes the deviation of an actual (realized or forecast) amount
// against a planned amount. A non-positive planned amount yields a percent of
// exactly 0: there is no meaningful base, and NaN or Inf must never leak into
// the display layer.
func Classify(planned, actual float64) Result {
	absolute := actual - planned

	var percent float64
	if planned > 0 {
		percent = absolute / planned * 100
	}

	return Result{
		Absolute: absolute,
		Percent:  percent,
		Tier:     tierFor(percent),
	}
}

func tierFor(percent float64) Tier {
	switch abs := math.Abs(percent); {
	case abs > criticalAbovePercent:
		return TierCritical
	case abs > watchAbovePercent:
		return TierWatch
	default:
		return TierOK
	}
}
