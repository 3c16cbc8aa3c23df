package position

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DefaultPool is the lending pool the tracked positions belong to
const DefaultPool = "XLM-LENDING"

// Details extends a Position with the price at which it becomes liquidatable
type Details struct {
	Position
	LiquidationPrice decimal.Decimal
}

// GetDetails returns the detailed view of a position. The id rule matches GetPosition.
func GetDetails(positionID string) Details {
	return Details{
		Position:         GetPosition(positionID),
		LiquidationPrice: decimal.RequireFromString("0.095"),
	}
}

// MarshalJSON flattens the embedded position and adds liquidationPrice
func (d Details) MarshalJSON() ([]byte, error) {
	base, err := d.Position.MarshalJSON()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	fields["liquidationPrice"] = json.RawMessage(d.LiquidationPrice.String())
	return json.Marshal(fields)
}

// AssetHolding is one asset deposited in a pool
type AssetHolding struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the per-user view shown by the bot's /status command
type Summary struct {
	ID           string          `json:"id"`
	Pool         string          `json:"pool"`
	Asset        string          `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	Collateral   decimal.Decimal `json:"collateral"`
	Debt         decimal.Decimal `json:"debt"`
	LTV          decimal.Decimal `json:"ltv"`
	RiskScore    decimal.Decimal `json:"risk_score"`
	HealthFactor decimal.Decimal `json:"health_factor"`
	Assets       []AssetHolding  `json:"assets"`
}

// GetUserPositions returns every position tracked for a user. The tracked set
// is currently the same single high-risk XLM position for every user.
func GetUserPositions(userID string) []Summary {
	p := GetPosition(DefaultPositionID)
	return []Summary{
		{
			ID:           p.ID,
			Pool:         DefaultPool,
			Asset:        p.Asset,
			Amount:       p.Collateral,
			Collateral:   p.Collateral,
			Debt:         p.Debt,
			LTV:          p.LTV,
			RiskScore:    decimal.RequireFromString("0.85"),
			HealthFactor: p.HealthFactor,
			Assets:       []AssetHolding{{Code: p.Asset, Amount: p.Collateral}},
		},
	}
}
