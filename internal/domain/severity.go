package domain

import "math"

// Evidence thresholds. A high trigger marks impact severe enough that two of
// them force the high band; moderate signals lift an otherwise quiet record
// to medium.
const (
	displacedHighThreshold     = 1000
	displacedModerateThreshold = 100
	lossHighThresholdUSD       = 100_000_000
	lossModerateThresholdUSD   = 5_000_000
)

// Classification is the reconciled severity outcome. HighTriggers is kept
// alongside the score for auditability.
type Classification struct {
	Band         SeverityBand
	Score        int
	HighTriggers int
}

// HighTriggerCount counts the evidence signals that individually argue for
// the high band.
func HighTriggerCount(ev Evidence) int {
	n := 0
	if ev.Fatalities >= 1 {
		n++
	}
	if ev.Displaced >= displacedHighThreshold {
		n++
	}
	if ev.InfrastructureDisruption {
		n++
	}
	if ev.CrossBorderImpact {
		n++
	}
	if ev.EmergencyDeclared {
		n++
	}
	if ev.InternationalAid {
		n++
	}
	if ev.RapidEscalation {
		n++
	}
	if ev.EconomicLossUSD >= lossHighThresholdUSD {
		n++
	}
	return n
}

// EvidenceBand derives a severity band from the evidence record:
// two or more high triggers force high; a single trigger or any moderate
// signal yields medium; otherwise low. Returns the band and the trigger count.
func EvidenceBand(ev Evidence) (SeverityBand, int) {
	triggers := HighTriggerCount(ev)
	if triggers >= 2 {
		return BandHigh, triggers
	}
	if triggers == 1 || hasModerateSignal(ev) {
		return BandMedium, triggers
	}
	return BandLow, triggers
}

func hasModerateSignal(ev Evidence) bool {
	if ev.Injuries > 0 {
		return true
	}
	if ev.Displaced >= displacedModerateThreshold && ev.Displaced < displacedHighThreshold {
		return true
	}
	if ev.EconomicLossUSD >= lossModerateThresholdUSD {
		return true
	}
	return ev.RegionalEmergencyOnly
}

// ClampToBand rounds base and clamps it into the band's sub-range. A zero or
// non-finite base means no usable score was supplied and the band midpoint is
// used instead.
func ClampToBand(band SeverityBand, base float64) int {
	if base == 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return band.Midpoint()
	}
	score := int(math.Round(base))
	lo, hi := band.Range()
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}

// Reconcile combines the three severity signals into one authoritative
// (band, score) pair:
//
//  1. Derive a band from the evidence record.
//  2. Parse the narrative for an explicit band and/or score.
//  3. The narrative band, when stated, overrides the evidence band.
//  4. The base score is the narrative score, else the raw claim clamped to
//     [1,10], else absent.
//  5. The base is clamped into the final band's sub-range; absent bases fall
//     to the band midpoint.
//
// Preferring the narrative's self-classification avoids a provider stating
// "medium" in prose while returning an inconsistent raw number, and bounding
// the score to the band keeps a "low" narrative from carrying a 9.
func Reconcile(rawScore float64, ev Evidence, narrative string) Classification {
	band, triggers := EvidenceBand(ev)

	narrativeBand, narrativeScore := ParseNarrative(narrative)
	if narrativeBand != "" {
		band = narrativeBand
	}

	base := clampRawScore(rawScore)
	if narrativeScore != 0 {
		base = float64(narrativeScore)
	}

	return Classification{
		Band:         band,
		Score:        ClampToBand(band, base),
		HighTriggers: triggers,
	}
}

// clampRawScore bounds a present raw claim to [1,10]; zero and non-finite
// values are treated as absent.
func clampRawScore(raw float64) float64 {
	if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	if raw < 1 {
		return 1
	}
	if raw > 10 {
		return 10
	}
	return raw
}
