package rates

import (
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const contactURL = "https://whatsapp-bot-96xm.onrender.com/"

// Formatter renders snapshots into customer-facing WhatsApp messages.
// Timestamps are displayed in the configured timezone regardless of where
// the service runs.
type Formatter struct {
	loc     *time.Location
	printer *message.Printer
}

func NewFormatter(displayTimezone string) *Formatter {
	loc, err := time.LoadLocation(displayTimezone)
	if err != nil {
		log.Printf("rates: unknown display timezone %q, using UTC: %v", displayTimezone, err)
		loc = time.UTC
	}
	return &Formatter{
		loc:     loc,
		printer: message.NewPrinter(language.English),
	}
}

func (f *Formatter) Greeting() string {
	return "👋 **Hello! Welcome to EVA Fx Trading Service**\n\n" +
		"🤖 **AI DISCLAIMER:** This is an AI-powered trading assistant. All rates and information are automatically generated and should be verified before making any financial decisions.\n\n"
}

func (f *Formatter) Unavailable() string {
	return "⚠️ Unable to fetch current exchange rates. Please try again later."
}

func (f *Formatter) num(v float64) string {
	return f.printer.Sprintf("%v", number.Decimal(v))
}

func (f *Formatter) stamp(snap Snapshot) string {
	return snap.GeneratedAt.In(f.loc).Format("2006-01-02 15:04:05 MST")
}

func (f *Formatter) pair(snap Snapshot, name string) string {
	v, ok := snap.Pairs[name]
	if !ok {
		return "unavailable"
	}
	return f.num(v)
}

// Daily renders the full selling-rates board.
func (f *Formatter) Daily(snap Snapshot) string {
	if len(snap.Pairs) == 0 {
		return f.Unavailable()
	}
	var b strings.Builder
	b.WriteString(f.Greeting())
	b.WriteString("🏦 **EVA FX TRADING RATES** 📈\n")
	b.WriteString("💼 *EVA Fx - Premium Currency Exchange*\n\n")
	fmt.Fprintf(&b, "📅 **%s**\n\n", f.stamp(snap))
	b.WriteString("💱 **TODAY'S SELLING RATES:**\n")
	fmt.Fprintf(&b, "• 1 USD = %s XAF | %s XOF\n", f.pair(snap, "XAF_USD"), f.pair(snap, "XOF_USD"))
	fmt.Fprintf(&b, "• 1 USDT = %s XAF | %s XOF\n", f.pair(snap, "XAF_USDT"), f.pair(snap, "XOF_USDT"))
	fmt.Fprintf(&b, "• 1 AED = %s XAF | %s XOF\n", f.pair(snap, "XAF_AED"), f.pair(snap, "XOF_AED"))
	fmt.Fprintf(&b, "• 1 CNY = %s XAF | %s XOF\n", f.pair(snap, "XAF_CNY"), f.pair(snap, "XOF_CNY"))
	fmt.Fprintf(&b, "• 1 EUR = %s XAF | %s XOF\n\n", f.pair(snap, "XAF_EUR"), f.pair(snap, "XOF_EUR"))
	b.WriteString(" **Quick Calculate:**\n")
	b.WriteString("Reply: \"100 USD\", \"500 CNY\", \"200 EUR\" or \"1000 XOF\"\n\n")
	fmt.Fprintf(&b, "🌐 **Contact EVA Fx:** %s\n", contactURL)
	b.WriteString("💬 *Live chatbot support - Ask questions, get quotes, complete transactions*\n\n")
	b.WriteString("⚠️ *Premium exchange rates by EVA Fx. Contact us for actual transactions.*\n\n")
	b.WriteString("🕒 24/7 Service | 🔄 Live Updates | 🌍 Global Coverage")
	return b.String()
}

func exchangeNote(quote string) string {
	switch quote {
	case "CNY":
		return "*Premium China market rates*"
	case "EUR":
		return "*Premium European market rates*"
	default:
		return "*Service fee included*"
	}
}

// Exchange renders a quick calculation of amount quote-currency into both
// XAF and XOF.
func (f *Formatter) Exchange(snap Snapshot, amount float64, currency string) string {
	quote, ok := NormalizeCurrency(currency)
	if !ok {
		return fmt.Sprintf("❌ Currency '%s' not supported. Available: USD, USDT, AED, CNY, EUR\n\n🌐 **Contact EVA Fx:** %s",
			strings.ToUpper(strings.TrimSpace(currency)), contactURL)
	}
	xaf, errXAF := Convert(snap, amount, quote, "XAF")
	xof, errXOF := Convert(snap, amount, quote, "XOF")
	if errXAF != nil || errXOF != nil {
		return "⚠️ Unable to fetch current rates. Please try again."
	}

	var b strings.Builder
	b.WriteString(f.Greeting())
	b.WriteString("💱 **EVA FX CALCULATION**\n\n")
	fmt.Fprintf(&b, "**%s %s → %s XAF**\n", f.num(amount), quote, f.num(xaf))
	fmt.Fprintf(&b, "**%s %s → %s XOF**\n\n", f.num(amount), quote, f.num(xof))
	fmt.Fprintf(&b, "Rates: 1 %s = %s XAF | %s XOF\n", quote, f.pair(snap, "XAF_"+quote), f.pair(snap, "XOF_"+quote))
	b.WriteString(exchangeNote(quote) + "\n\n")
	fmt.Fprintf(&b, "🌐 **Contact EVA Fx:** %s\n", contactURL)
	fmt.Fprintf(&b, "📅 Updated: %s\n", f.stamp(snap))
	b.WriteString("⚠️ *Premium exchange rates by EVA Fx*")
	return b.String()
}

// TradingProcess renders the deposit-first trade walkthrough for one quote,
// priced in the requested base currency (XAF or XOF).
func (f *Formatter) TradingProcess(snap Snapshot, amount float64, currency, base string) string {
	quote, ok := NormalizeCurrency(currency)
	if !ok {
		return "❌ Source currency not supported"
	}
	base = strings.ToUpper(strings.TrimSpace(base))
	if base != "XAF" && base != "XOF" {
		return "❌ Target currency not supported"
	}
	converted, err := Convert(snap, amount, quote, base)
	if err != nil {
		return "⚠️ Unable to fetch current rates. Please try again."
	}
	rate := snap.Pairs[base+"_"+quote]

	var b strings.Builder
	b.WriteString("🏦 **EVA FX TRADING PROCESS**\n\n")
	b.WriteString("💱 **Your Trade with EVA Fx:**\n")
	fmt.Fprintf(&b, "%s %s → %s %s\n", f.num(amount), quote, f.num(converted), base)
	fmt.Fprintf(&b, "Rate: 1 %s = %s %s\n\n", quote, f.num(rate), base)
	b.WriteString("📋 **TO COMPLETE THIS TRADE:**\n\n")
	b.WriteString("**STEP 1: DEPOSIT TO DEDICATED ACCOUNT**\n")
	fmt.Fprintf(&b, "• Deposit cash equivalent in %s to our dedicated account\n", base)
	b.WriteString("• Bank account details will be shared when you're ready to trade\n")
	b.WriteString("• Account details vary by your country/region\n")
	b.WriteString("• Mobile money transfers accepted (MTN, Orange Money, etc.)\n\n")
	b.WriteString("**STEP 2: SUBMIT DEPOSIT PROOF**\n")
	b.WriteString("• Send clear photo of deposit slip/receipt\n")
	b.WriteString("• Include transaction reference number\n")
	b.WriteString("• Specify amount deposited and bank/operator used\n")
	b.WriteString("• Receipt must show your name and transaction date\n\n")
	b.WriteString("**STEP 3: VERIFICATION PROCESS**\n")
	b.WriteString("• EVA Fx team verifies your deposit (15-30 minutes)\n")
	b.WriteString("• Transaction amount must match your order exactly\n")
	b.WriteString("• We check with bank/mobile operator for authenticity\n")
	b.WriteString("• Fake or altered receipts are automatically rejected\n\n")
	b.WriteString("**STEP 4: CURRENCY RELEASE**\n")
	fmt.Fprintf(&b, "• %s released after successful verification\n", quote)
	b.WriteString("• Digital wallet transfers for crypto/USD\n")
	b.WriteString("• Cash pickup available in major cities\n")
	b.WriteString("• International transfers to China & Europe supported\n\n")
	b.WriteString("⚠️ **EVA FX SECURITY POLICY:**\n")
	b.WriteString("• No deposit = No exchange (strict policy)\n")
	b.WriteString("• All receipts undergo professional verification\n")
	b.WriteString("• Deposits to personal accounts not accepted\n")
	b.WriteString("• Only use our official dedicated accounts\n\n")
	fmt.Fprintf(&b, "🌐 **EVA Fx Contact:** %s\n\n", contactURL)
	b.WriteString("**Ready to proceed? Visit our chat portal for live assistance.**")
	return b.String()
}
