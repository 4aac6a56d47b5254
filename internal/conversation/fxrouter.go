package conversation

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/ent0n29/evafx/internal/rates"
)

// SubscriptionManager maintains the daily-broadcast recipient list.
type SubscriptionManager interface {
	Subscribe(ctx context.Context, owner string) error
	Unsubscribe(ctx context.Context, owner string) error
}

var (
	amountPattern  = regexp.MustCompile(`(\d+(\.\d+)?)\s*(usd|aed|usdt|tether|cny|rmb|yuan|eur)\b`)
	convertPattern = regexp.MustCompile(`(?:convert\s+)?(\d+(\.\d+)?)\s*(usd|aed|usdt|tether|cny|rmb|yuan|eur)\s+to\s+([a-z]{3})\b`)
)

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// FXRouter answers rate and calculation intents directly from the engine,
// without a model call.
type FXRouter struct {
	engine *rates.Engine
	format *rates.Formatter
	subs   SubscriptionManager
}

func NewFXRouter(engine *rates.Engine, format *rates.Formatter, subs SubscriptionManager) *FXRouter {
	return &FXRouter{engine: engine, format: format, subs: subs}
}

// Handle returns (reply, true) if the message is an FX intent, ("", false)
// otherwise. Intent checks run in priority order; the first hit wins.
func (r *FXRouter) Handle(ctx context.Context, owner, text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	if containsAny(lower, "rate", "rates") {
		return r.format.Daily(r.engine.Snapshot(ctx)), true
	}

	if containsAny(lower, "exchange", "fx", "currency", "price", "usd", "aed", "usdt", "xaf") {
		if containsAny(lower, "today", "current", "now", "latest", "daily") {
			return r.format.Daily(r.engine.Snapshot(ctx)), true
		}
	}

	if m := convertPattern.FindStringSubmatch(lower); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "❌ Invalid amount. Please enter a number (e.g., '100 USD to XAF')", true
		}
		return r.format.TradingProcess(r.engine.Snapshot(ctx), amount, m[3], m[4]), true
	}

	if m := amountPattern.FindStringSubmatch(lower); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "❌ Invalid amount. Please enter a number (e.g., '100 USD')", true
		}
		return r.format.Exchange(r.engine.Snapshot(ctx), amount, m[3]), true
	}

	if containsAny(lower, "unsubscribe", "stop alerts") {
		if r.subs != nil {
			if err := r.subs.Unsubscribe(ctx, owner); err != nil {
				log.Printf("conversation: unsubscribe failed for %s: %v", owner, err)
			}
		}
		return "🔕 You have been removed from daily rate broadcasts. Send \"subscribe\" anytime to rejoin.", true
	}

	if containsAny(lower, "subscribe", "automatic", "alerts") {
		if r.subs != nil && strings.Contains(lower, "subscribe") {
			if err := r.subs.Subscribe(ctx, owner); err != nil {
				log.Printf("conversation: subscribe failed for %s: %v", owner, err)
			}
		}
		return subscriptionReply, true
	}

	if containsAny(lower, "hello", "hi", "help", "start", "menu") {
		return helpReply, true
	}

	return "", false
}

const subscriptionReply = `📬 **DAILY RATE SUBSCRIPTION**

🕘 **Automatic daily rates at 9:00 AM Gulf Time**

You are now on the broadcast list.
Features:
• Daily rate broadcasts
• Live market updates
• Professional FX insights
• EVA Fx premium service

⚠️ AI FX Trader Service`

const helpReply = `🏦 **Welcome to EVA Fx Trading!** 💱
💼 *AI FX Trader*

**Available Commands:**
• "rates" or "rate" - Get current exchange rates
• "100 USD" - Calculate XAF equivalent for any amount
• "500 AED" - Calculate XAF equivalent for AED
• "1000 USDT" - Calculate XAF equivalent for USDT
• "subscribe" - Join the daily rate broadcast

**Supported Currencies:**
• USD (US Dollar)
• AED (UAE Dirham)
• USDT (Tether)
• CNY (Chinese Yuan)
• EUR (Euro)

**Features:**
• Live rates from Yahoo Finance
• 24/7 availability
• Real-time calculations
• Daily rate broadcasts at 9AM Gulf Time

Send "rates" to get started! 📈`
