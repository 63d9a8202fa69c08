package eclat

import "slices"

// LiftStats describes how lift is distributed over a rule set.
type LiftStats struct {
	Count   int          `json:"count"`
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
	Mean    float64      `json:"mean"`
	Median  float64      `json:"median"`
	Buckets []LiftBucket `json:"buckets"`
}

type LiftBucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

var liftBuckets = []struct {
	label    string
	lo, hi   float64
	lastOpen bool
}{
	{label: "< 0.5", lo: -1, hi: 0.5},
	{label: "0.5-1.0", lo: 0.5, hi: 1.0},
	{label: "1.0-2.0", lo: 1.0, hi: 2.0},
	{label: "2.0-5.0", lo: 2.0, hi: 5.0},
	{label: "5.0-10.0", lo: 5.0, hi: 10.0},
	{label: ">= 10.0", lo: 10.0, lastOpen: true},
}

// LiftDistribution summarizes rule lifts. An empty rule set yields a zero LiftStats.
func LiftDistribution(rules []AssociationRule) LiftStats {
	if len(rules) == 0 {
		return LiftStats{}
	}
	lifts := make([]float64, len(rules))
	sum := 0.0
	for i, r := range rules {
		lifts[i] = r.Lift
		sum += r.Lift
	}
	slices.Sort(lifts)

	n := len(lifts)
	st := LiftStats{
		Count: n,
		Min:   lifts[0],
		Max:   lifts[n-1],
		Mean:  sum / float64(n),
	}
	if n%2 == 1 {
		st.Median = lifts[n/2]
	} else {
		st.Median = (lifts[n/2-1] + lifts[n/2]) / 2
	}

	for _, b := range liftBuckets {
		c := 0
		for _, l := range lifts {
			if l >= b.lo && (b.lastOpen || l < b.hi) {
				c++
			}
		}
		st.Buckets = append(st.Buckets, LiftBucket{Label: b.label, Count: c, Percent: float64(c) / float64(n) * 100})
	}
	return st
}
