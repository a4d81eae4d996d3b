package domain

// RiskLevel is the discrete banding of a 0-100 risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// LevelForScore maps a clamped score to its band. Thresholds are inclusive:
// >=75 critical, >=50 high, >=25 medium, else low.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskLevelCritical
	case score >= 50:
		return RiskLevelHigh
	case score >= 25:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// String returns the string representation of the level.
func (l RiskLevel) String() string {
	return string(l)
}
