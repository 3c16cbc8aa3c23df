package alert

import (
	"fmt"
	"strings"

	"blendguard/internal/position"
	"blendguard/internal/risk"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ExecutedAction is one line of a protection receipt as reported by the frontend
type ExecutedAction struct {
	Type    string          `json:"action_type"`
	Amount  decimal.Decimal `json:"amount"`
	AssetID string          `json:"asset_id"`
}

// LiquidationAlert warns a user that a position is close to liquidation
func LiquidationAlert(userID string, s position.Summary, contractID string) AlertPayload {
	text := fmt.Sprintf("⚠️ *Liquidation Risk Alert*\n\n"+
		"🎯 Position: %s\n"+
		"📊 Risk Score: %s\n"+
		"💰 Amount: $%s\n"+
		"🔥 Health Factor: %s\n\n"+
		"⚡ *Action Required* - Your position is at risk of liquidation!\n"+
		"🛡️ SafetyVault: `%s`",
		s.Asset, Percent(s.RiskScore, 0), USD(s.Amount, 2), s.HealthFactor.String(), ShortContractID(contractID))

	return AlertPayload{
		Level:     Critical,
		Title:     "Liquidation Risk Alert",
		Message:   text,
		Recipient: userID,
		Raw:       true,
		Fields:    map[string]string{"position_id": s.ID},
		Buttons: [][]Button{{
			{Text: "🛡️ Activate Protection", CallbackData: "protect_" + s.ID},
			{Text: "📊 View Details", CallbackData: "details_" + s.ID},
		}},
	}
}

// ProtectionComplete confirms an executed protection to the user
func ProtectionComplete(userID, positionID, txHash string, actions []ExecutedAction) AlertPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "🛡️ *BlendGuard Protection Complete!*\n\n"+
		"✅ Position #%s has been successfully protected\n\n"+
		"🔗 *Transaction Details:*\n"+
		"TX Hash: `%s`\n\n"+
		"📊 *Actions Executed:*\n", escapeMarkdown(positionID), txHash)

	for _, a := range actions {
		actionType := a.Type
		if actionType == "" {
			actionType = "Unknown"
		}
		if a.Amount.IsPositive() {
			fmt.Fprintf(&b, "• %s: %s %s\n", escapeMarkdown(actionType), Thousands(a.Amount, 0), escapeMarkdown(a.AssetID))
		} else {
			fmt.Fprintf(&b, "• %s\n", escapeMarkdown(actionType))
		}
	}
	b.WriteString("\n🎉 Your position is now protected from liquidation!")

	return AlertPayload{
		Level:     Info,
		Title:     "Protection Complete",
		Message:   b.String(),
		Recipient: userID,
		Raw:       true,
		Fields:    map[string]string{"position_id": positionID, "tx_hash": txHash},
	}
}

// PositionDetails renders the bot's details view
func PositionDetails(d position.Details, vaultStatus string) string {
	return fmt.Sprintf("📊 *Position Details*\n\n"+
		"🏷️ ID: `%s`\n"+
		"🎯 Asset: %s\n"+
		"💰 Collateral: $%s\n"+
		"💸 Debt: $%s\n"+
		"📈 LTV: %s\n"+
		"🔥 Health Factor: %s\n"+
		"⚡ Liquidation Price: $%s\n\n"+
		"🛡️ SafetyVault Ready: %s",
		d.ID, d.Asset, USD(d.Collateral, 2), USD(d.Debt, 2), Percent(d.LTV, 1),
		d.HealthFactor.String(), USD(d.LiquidationPrice, 2), vaultStatus)
}

// StatusReport renders the /status list. Positions whose score warrants it get a protect button.
func StatusReport(positions []position.Summary) (string, [][]Button) {
	if len(positions) == 0 {
		return "📊 *Position Status*\n\nNo active lending positions found.\n\n" +
			"Connect your wallet to start using Blend lending markets!", nil
	}

	var b strings.Builder
	var buttons [][]Button
	b.WriteString("📊 *Your Lending Positions*\n\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "%s *%s*: $%s\n", risk.Classify(p.RiskScore).Marker(), p.Asset, Thousands(p.Amount, 0))
		fmt.Fprintf(&b, "   Risk: %s | Health: %s\n\n", Percent(p.RiskScore, 0), p.HealthFactor.StringFixed(2))

		if risk.OffersProtection(p.RiskScore) {
			buttons = append(buttons, []Button{{
				Text:         "🛡️ Activate Protection - " + p.Asset,
				CallbackData: "protect_" + p.ID,
			}})
		}
	}
	return b.String(), buttons
}

// ProtectLink is the reply carrying the signed deeplink button
func ProtectLink(userID, positionID, link string) AlertPayload {
	return AlertPayload{
		Level: Info,
		Title: "Protection Activated",
		Message: fmt.Sprintf("🛡️ *Protection Activated!*\n\n"+
			"✅ Secure HMAC-signed deeplink generated\n"+
			"🔐 Position: `%s`\n"+
			"👤 User: `%s`\n\n"+
			"Click below to open BlendGuard protection interface:", positionID, userID),
		Recipient: userID,
		Raw:       true,
		Buttons:   [][]Button{{{Text: "🛡️ Open Protection App", URL: link}}},
	}
}

// ShortContractID keeps the first and last 8 characters of a contract id
func ShortContractID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// Percent renders a fraction as a percentage, e.g. 0.85 -> "85%"
func Percent(ratio decimal.Decimal, places int32) string {
	return ratio.Shift(2).StringFixed(places) + "%"
}

// USD renders an amount with thousands separators and fixed decimals
func USD(amount decimal.Decimal, places int32) string {
	return Thousands(amount, places)
}

// Thousands formats a decimal with comma grouping, e.g. 10000 -> "10,000".
// The value is rounded half away from zero before formatting.
func Thousands(d decimal.Decimal, places int32) string {
	p := message.NewPrinter(language.English)
	return p.Sprint(number.Decimal(d.Round(places).InexactFloat64(), number.Scale(int(places))))
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown makes caller-supplied text safe outside entities in
// Telegram's legacy Markdown mode
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
