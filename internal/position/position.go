// Package position provides the lending position records served to the bot,
// the frontend and the safety vault.
package position

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DefaultPositionID is substituted when a caller does not name a position
const DefaultPositionID = "XLM-123"

// Status classifies a position's risk tier
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusHighRisk Status = "high-risk"
)

// Position is a single collateralized borrowing record.
// Collateral and Debt are denominated in USD.
type Position struct {
	ID           string
	Asset        string
	Collateral   decimal.Decimal
	Debt         decimal.Decimal
	LTV          decimal.Decimal
	HealthFactor decimal.Decimal
	Status       Status
}

// GetPosition returns the tracked position record under the given id.
// An empty id falls back to DefaultPositionID. The metrics are fixed and
// are not derived from collateral or debt.
func GetPosition(positionID string) Position {
	if positionID == "" {
		positionID = DefaultPositionID
	}
	return Position{
		ID:           positionID,
		Asset:        "XLM",
		Collateral:   decimal.NewFromInt(10000),
		Debt:         decimal.NewFromInt(8500),
		LTV:          decimal.RequireFromString("0.85"),
		HealthFactor: decimal.RequireFromString("1.15"),
		Status:       StatusHighRisk,
	}
}

// Equal reports whether two positions carry the same values
func (p Position) Equal(other Position) bool {
	return p.ID == other.ID &&
		p.Asset == other.Asset &&
		p.Collateral.Equal(other.Collateral) &&
		p.Debt.Equal(other.Debt) &&
		p.LTV.Equal(other.LTV) &&
		p.HealthFactor.Equal(other.HealthFactor) &&
		p.Status == other.Status
}

type positionJSON struct {
	ID           string      `json:"id"`
	Asset        string      `json:"asset"`
	Collateral   json.Number `json:"collateral"`
	Debt         json.Number `json:"debt"`
	LTV          json.Number `json:"ltv"`
	HealthFactor json.Number `json:"healthFactor"`
	Status       Status      `json:"status"`
}

// MarshalJSON encodes the decimal fields as JSON numbers
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{
		ID:           p.ID,
		Asset:        p.Asset,
		Collateral:   number(p.Collateral),
		Debt:         number(p.Debt),
		LTV:          number(p.LTV),
		HealthFactor: number(p.HealthFactor),
		Status:       p.Status,
	})
}

// UnmarshalJSON accepts numbers or numeric strings for the decimal fields
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	out := Position{ID: raw.ID, Asset: raw.Asset, Status: raw.Status}
	if out.Collateral, err = parseNumber(raw.Collateral); err != nil {
		return err
	}
	if out.Debt, err = parseNumber(raw.Debt); err != nil {
		return err
	}
	if out.LTV, err = parseNumber(raw.LTV); err != nil {
		return err
	}
	if out.HealthFactor, err = parseNumber(raw.HealthFactor); err != nil {
		return err
	}
	*p = out
	return nil
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func parseNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}

// Source looks up positions by id. Implementations backed by a ledger or a
// price oracle can replace FixedSource without changing callers.
type Source interface {
	Fetch(ctx context.Context, positionID string) (Position, error)
}

// FixedSource serves GetPosition. It never fails.
type FixedSource struct{}

// NewFixedSource creates a FixedSource
func NewFixedSource() *FixedSource {
	return &FixedSource{}
}

func (s *FixedSource) Fetch(_ context.Context, positionID string) (Position, error) {
	return GetPosition(positionID), nil
}
