package alert

import (
	"testing"

	"blendguard/internal/position"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summary() position.Summary {
	return position.GetUserPositions("42")[0]
}

func TestLiquidationAlert(t *testing.T) {
	p := LiquidationAlert("42", summary(), "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC")

	assert.Equal(t, "42", p.Recipient)
	assert.Equal(t, Critical, p.Level)
	assert.Contains(t, p.Message, "🎯 Position: XLM")
	assert.Contains(t, p.Message, "📊 Risk Score: 85%")
	assert.Contains(t, p.Message, "💰 Amount: $10,000.00")
	assert.Contains(t, p.Message, "🔥 Health Factor: 1.15")
	assert.Contains(t, p.Message, "`CDLZFC3S...2HHGCYSC`")
	require.Len(t, p.Buttons, 1)
	assert.Equal(t, "details_XLM-123", p.Buttons[0][1].CallbackData)
}

func TestProtectionComplete(t *testing.T) {
	p := ProtectionComplete("42", "XLM-123", "abc123", []ExecutedAction{
		{Type: "TopUpCollateral", Amount: decimal.NewFromInt(1000), AssetID: "XLM"},
		{Type: "ClaimInsurance"},
		{Amount: decimal.NewFromInt(12500), AssetID: "USDC"},
	})

	assert.Contains(t, p.Message, "✅ Position #XLM-123 has been successfully protected")
	assert.Contains(t, p.Message, "TX Hash: `abc123`")
	assert.Contains(t, p.Message, "• TopUpCollateral: 1,000 XLM\n")
	assert.Contains(t, p.Message, "• ClaimInsurance\n")
	assert.Contains(t, p.Message, "• Unknown: 12,500 USDC\n")
	assert.Contains(t, p.Message, "🎉 Your position is now protected from liquidation!")
	assert.Equal(t, "abc123", p.Fields["tx_hash"])
}

func TestProtectionComplete_EscapesCallerText(t *testing.T) {
	p := ProtectionComplete("42", "XLM_1*[x]`", "abc123", []ExecutedAction{
		{Type: "Top_Up", Amount: decimal.NewFromInt(5), AssetID: "USDC*"},
		{Type: "Claim_Insurance"},
	})

	assert.Contains(t, p.Message, "✅ Position #XLM\\_1\\*\\[x]\\` has been successfully protected")
	assert.Contains(t, p.Message, "• Top\\_Up: 5 USDC\\*\n")
	assert.Contains(t, p.Message, "• Claim\\_Insurance\n")
	assert.Equal(t, "XLM_1*[x]`", p.Fields["position_id"])
}

func TestPositionDetails(t *testing.T) {
	text := PositionDetails(position.GetDetails("ABC-1"), "active")

	assert.Contains(t, text, "🏷️ ID: `ABC-1`")
	assert.Contains(t, text, "💰 Collateral: $10,000.00")
	assert.Contains(t, text, "💸 Debt: $8,500.00")
	assert.Contains(t, text, "📈 LTV: 85.0%")
	assert.Contains(t, text, "⚡ Liquidation Price: $0.10")
	assert.Contains(t, text, "🛡️ SafetyVault Ready: active")
}

func TestStatusReport(t *testing.T) {
	text, buttons := StatusReport(position.GetUserPositions("42"))
	assert.Contains(t, text, "🔴 *XLM*: $10,000")
	assert.Contains(t, text, "Risk: 85% | Health: 1.15")
	require.Len(t, buttons, 1)
	assert.Equal(t, "protect_XLM-123", buttons[0][0].CallbackData)

	low := summary()
	low.RiskScore = decimal.RequireFromString("0.3")
	text, buttons = StatusReport([]position.Summary{low})
	assert.Contains(t, text, "🟢")
	assert.Empty(t, buttons)

	text, buttons = StatusReport(nil)
	assert.Contains(t, text, "No active lending positions found.")
	assert.Nil(t, buttons)
}

func TestProtectLink(t *testing.T) {
	p := ProtectLink("42", "XLM-123", "https://app/protect/?pos=XLM-123&user=42&sig=ff")
	assert.Equal(t, "https://app/protect/?pos=XLM-123&user=42&sig=ff", p.Buttons[0][0].URL)
	assert.Contains(t, p.Message, "🔐 Position: `XLM-123`")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "ABCDEFGH...STUVWXYZ", ShortContractID("ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	assert.Equal(t, "SHORT", ShortContractID("SHORT"))

	assert.Equal(t, "0", Thousands(decimal.Zero, 0))
	assert.Equal(t, "999", Thousands(decimal.NewFromInt(999), 0))
	assert.Equal(t, "1,000", Thousands(decimal.NewFromInt(1000), 0))
	assert.Equal(t, "1,234,567.89", Thousands(decimal.RequireFromString("1234567.891"), 2))
	assert.Equal(t, "-12,000.50", Thousands(decimal.RequireFromString("-12000.5"), 2))
	assert.Equal(t, "2,001", Thousands(decimal.RequireFromString("2000.5"), 0))
	assert.Equal(t, "10,000.00", Thousands(decimal.NewFromInt(10000), 2))

	assert.Equal(t, "85%", Percent(decimal.RequireFromString("0.85"), 0))
	assert.Equal(t, "65.0%", Percent(decimal.RequireFromString("0.65"), 1))
}
