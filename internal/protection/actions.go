package protection

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ActionType names a safety action the vault can run
type ActionType string

const (
	ActionTopUpCollateral ActionType = "TopUpCollateral"
	ActionClaimInsurance  ActionType = "ClaimInsurance"
	ActionPartialRepay    ActionType = "PartialRepay"
)

// Action is a single safety step. Address is the pool for TopUpCollateral
// and ClaimInsurance, and the debt asset for PartialRepay.
type Action struct {
	Type    ActionType      `json:"action_type"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

func TopUpCollateral(pool string, amount decimal.Decimal) Action {
	return Action{Type: ActionTopUpCollateral, Address: pool, Amount: amount}
}

func ClaimInsurance(pool string) Action {
	return Action{Type: ActionClaimInsurance, Address: pool}
}

func PartialRepay(debtAsset string, amount decimal.Decimal) Action {
	return Action{Type: ActionPartialRepay, Address: debtAsset, Amount: amount}
}

// Validate checks the action's parameters without executing it
func (a Action) Validate() error {
	if a.Address == "" {
		return fmt.Errorf("%w: %s requires an address", ErrInvalidAction, a.Type)
	}
	switch a.Type {
	case ActionTopUpCollateral, ActionPartialRepay:
		if !a.Amount.IsPositive() {
			return fmt.Errorf("%w: %s amount must be positive, got %s", ErrInvalidAction, a.Type, a.Amount)
		}
	case ActionClaimInsurance:
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}
	return nil
}

// ValidateAll checks every action and reports the first failure with its index
func ValidateAll(actions []Action) error {
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
