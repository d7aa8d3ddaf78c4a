package model

import "fmt"

// ScoreSet is the fixed set of named scores produced by the pose analysis, each
// in [0,100].
type ScoreSet struct {
	PunchSpeed     float64 `json:"punch_speed"`
	GuardStability float64 `json:"guard_stability"`
	KickHeight     float64 `json:"kick_height"`
	CoreRotation   float64 `json:"core_rotation"`
}

// scoreNames is the canonical ordering used for composition and metrics tags.
var scoreNames = []string{"punch_speed", "guard_stability", "kick_height", "core_rotation"}

// Values returns the scores in canonical order, paired with Names.
func (s ScoreSet) Values() []float64 {
	return []float64{s.PunchSpeed, s.GuardStability, s.KickHeight, s.CoreRotation}
}

// Names returns the canonical score names in the same order as Values.
func Names() []string {
	out := make([]string, len(scoreNames))
	copy(out, scoreNames)
	return out
}

// Validate checks that every score is within [0,100].
func (s ScoreSet) Validate() error {
	for i, v := range s.Values() {
		if v < 0 || v > 100 {
			return fmt.Errorf("score %s out of range: %v", scoreNames[i], v)
		}
	}
	return nil
}

// Overall returns the unweighted mean of the four scores, rounded to one decimal.
func (s ScoreSet) Overall() float64 {
	sum := 0.0
	for _, v := range s.Values() {
		sum += v
	}
	return roundOne(sum / 4)
}

func roundOne(v float64) float64 {
	if v < 0 {
		return float64(int(v*10-0.5)) / 10
	}
	return float64(int(v*10+0.5)) / 10
}
