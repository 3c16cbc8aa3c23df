// Package risk classifies lending positions for display and protection gating.
// It does not compute health factors or LTV; it only reads them.
package risk

import "github.com/shopspring/decimal"

// Tier is a display bucket for a risk score
type Tier int

const (
	TierLow Tier = iota
	TierElevated
	TierCritical
)

var (
	criticalScore   = decimal.RequireFromString("0.8")
	elevatedScore   = decimal.RequireFromString("0.6")
	protectionScore = decimal.RequireFromString("0.7")

	// AtRiskLTV is the lowest LTV the safety vault will act on (7000 bps)
	AtRiskLTV = decimal.RequireFromString("0.70")
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierElevated:
		return "elevated"
	default:
		return "low"
	}
}

// Marker is the emoji prefix used in bot messages
func (t Tier) Marker() string {
	switch t {
	case TierCritical:
		return "🔴"
	case TierElevated:
		return "🟡"
	default:
		return "🟢"
	}
}

// Classify buckets a risk score in [0,1]
func Classify(score decimal.Decimal) Tier {
	switch {
	case score.GreaterThan(criticalScore):
		return TierCritical
	case score.GreaterThan(elevatedScore):
		return TierElevated
	default:
		return TierLow
	}
}

// OffersProtection reports whether a score is high enough to offer the user a protect action
func OffersProtection(score decimal.Decimal) bool {
	return score.GreaterThan(protectionScore)
}

// AtRisk reports whether a position's LTV is at or above the vault threshold
func AtRisk(ltv decimal.Decimal) bool {
	return ltv.GreaterThanOrEqual(AtRiskLTV)
}

// ToBasisPoints converts a fractional ratio to basis points, truncating
func ToBasisPoints(ratio decimal.Decimal) int64 {
	return ratio.Shift(4).IntPart()
}
