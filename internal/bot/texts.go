package bot

import (
	"fmt"

	"blendguard/internal/protection"
)

const welcomeText = "🛡️ *Welcome to BlendGuard!*\n\n" +
	"I'm your personal Stellar lending protection assistant. " +
	"I monitor your positions and help protect them from liquidation.\n\n" +
	"*Available Commands:*\n" +
	"• `/status` - Check your position health\n" +
	"• `/contract` - View BlendGuard contract info\n" +
	"• `/demo` - Send a liquidation alert for your riskiest positions\n\n" +
	"Stay safe! 🚀"

const errorText = "❌ An error occurred while processing your request. Please try again."

func contractText(info protection.VaultInfo) string {
	return fmt.Sprintf("🔗 *BlendGuard Contract Info*\n\n"+
		"*SafetyVault Contract:*\n`%s`\n\n"+
		"*Network:* %s\n"+
		"*Version:* %s\n\n"+
		"This contract protects your lending positions through automated safety actions.",
		info.ContractID, info.Network, info.Version)
}
