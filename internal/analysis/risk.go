package analysis

// Acute:chronic workload ratio bands.
const (
	riskOptimalLow  = 0.9
	riskOptimalHigh = 1.1
	riskFloor       = 0.7
	riskCeiling     = 1.3

	overkillRatio = 1.3
	overkillKEI   = 30.0
)

// RiskRatio returns acute/chronic. A chronic load of zero (no fitness base yet)
// yields 0 rather than an undefined ratio.
func RiskRatio(acute, chronic float64) float64 {
	if chronic <= 0 || !isFinite(acute) || !isFinite(chronic) {
		return 0
	}
	r := acute / chronic
	if !isFinite(r) || r < 0 {
		return 0
	}
	return r
}

// NormalizeRisk scores a ratio: 100 inside [0.9, 1.1], falling linearly
// to 0 at 0.7 and at 1.3, and 0 beyond.
func NormalizeRisk(r float64) float64 {
	switch {
	case !isFinite(r):
		return 0
	case r >= riskOptimalLow && r <= riskOptimalHigh:
		return 100
	case r > riskOptimalHigh:
		return clampScore((riskCeiling - r) / (riskCeiling - riskOptimalHigh) * 100)
	default:
		return clampScore((r - riskFloor) / (riskOptimalLow - riskFloor) * 100)
	}
}

// Overkill flags a day whose ratio exceeds 1.3 or whose key effort index exceeds 30.
// Non-finite inputs never trigger the flag.
func Overkill(ratio, kei float64) bool {
	return (isFinite(ratio) && ratio > overkillRatio) || (isFinite(kei) && kei > overkillKEI)
}
