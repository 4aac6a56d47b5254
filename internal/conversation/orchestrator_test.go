package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ent0n29/evafx/internal/actions"
	"github.com/ent0n29/evafx/internal/brain"
	"github.com/ent0n29/evafx/internal/kvstore"
	"github.com/ent0n29/evafx/internal/memory"
	"github.com/ent0n29/evafx/internal/messaging"
	"github.com/ent0n29/evafx/internal/rates"
)

type stubSource struct{ rates map[string]float64 }

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) GetRate(_ context.Context, from, to string) (float64, error) {
	if rate, ok := s.rates[from+"_"+to]; ok {
		return rate, nil
	}
	return 0, errors.New("no stub rate")
}

type stubSubs struct {
	subscribed   []string
	unsubscribed []string
}

func (s *stubSubs) Subscribe(_ context.Context, owner string) error {
	s.subscribed = append(s.subscribed, owner)
	return nil
}

func (s *stubSubs) Unsubscribe(_ context.Context, owner string) error {
	s.unsubscribed = append(s.unsubscribed, owner)
	return nil
}

type fixture struct {
	orch    *Orchestrator
	mem     *memory.Store
	gateway *messaging.MockGateway
	brain   *brain.Mock
	subs    *stubSubs
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)
	kv := kvstore.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = kv.Close() })

	mem := memory.New(kv, memory.Options{})
	gw := messaging.NewMockGateway()
	exec := actions.NewExecutor(mem, kv, gw, "whatsapp:+14155238886", nil)

	engine := rates.NewEngine([]rates.Source{&stubSource{rates: map[string]float64{
		"USD_XAF": 600, "USD_XOF": 590, "AED_USD": 0.2723, "USD_CNY": 7.2, "USD_EUR": 0.9,
	}}}, rates.EngineOptions{}, nil)
	subs := &stubSubs{}
	fx := NewFXRouter(engine, rates.NewFormatter("UTC"), subs)

	mock := &brain.Mock{Reply: brain.Reply{Text: "How can I help with your exchange today?"}}
	return &fixture{
		orch:    New(mem, exec, mock, fx, nil),
		mem:     mem,
		gateway: gw,
		brain:   mock,
		subs:    subs,
	}
}

func TestHandleMessageRateIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reply := f.orch.HandleMessage(ctx, "whatsapp:+237650000001", "What are your rates?")
	if !strings.Contains(reply, "EVA FX TRADING RATES") {
		t.Fatalf("reply = %q, want daily rates board", reply)
	}
	if f.brain.Calls() != 0 {
		t.Fatalf("brain calls = %d, want 0 for FX intent", f.brain.Calls())
	}

	history, err := f.mem.History(ctx, "+237650000001")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want user + assistant", len(history))
	}
	if history[0].Role != memory.RoleUser || history[1].Role != memory.RoleAssistant {
		t.Fatalf("history roles = %v, want user then assistant", history)
	}
}

func TestHandleMessageAmountCalculation(t *testing.T) {
	f := setup(t)

	reply := f.orch.HandleMessage(context.Background(), "+237650000001", "how much is 100 usd")
	if !strings.Contains(reply, "EVA FX CALCULATION") {
		t.Fatalf("reply = %q, want calculation", reply)
	}
	if !strings.Contains(reply, "100 USD → 64,800 XAF") {
		t.Fatalf("reply = %q, want converted amount", reply)
	}
}

func TestHandleMessageConversionWalkthrough(t *testing.T) {
	f := setup(t)

	reply := f.orch.HandleMessage(context.Background(), "+237650000001", "convert 500 usdt to xaf")
	if !strings.Contains(reply, "EVA FX TRADING PROCESS") {
		t.Fatalf("reply = %q, want trade walkthrough", reply)
	}
	if !strings.Contains(reply, "500 USDT → 325,500 XAF") {
		t.Fatalf("reply = %q, want converted trade amount", reply)
	}
}

func TestHandleMessageDirectSendMessage(t *testing.T) {
	f := setup(t)

	reply := f.orch.HandleMessage(context.Background(), "+237650000001",
		`Send a message to +237650000002 saying "meet at noon"`)
	if !strings.HasPrefix(reply, "✅ ") {
		t.Fatalf("reply = %q, want success prefix", reply)
	}
	sends := f.gateway.Sends()
	if len(sends) != 1 {
		t.Fatalf("gateway sends = %d, want 1", len(sends))
	}
	if sends[0].To != "whatsapp:+237650000002" || sends[0].Body != "meet at noon" {
		t.Fatalf("send = %+v, want parsed recipient and body", sends[0])
	}
	if f.brain.Calls() != 0 {
		t.Fatalf("brain calls = %d, want 0 for direct command", f.brain.Calls())
	}
}

func TestHandleMessageDirectReminderSlashDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reply := f.orch.HandleMessage(ctx, "+237650000001", "Remind me to pay rent on 6/1/25")
	if !strings.HasPrefix(reply, "✅ ") {
		t.Fatalf("reply = %q, want success prefix", reply)
	}

	recs, err := f.mem.Retrieve(ctx, "+237650000001", memory.CategoryReminder, 5, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("reminders = %d, want 1", len(recs))
	}
	var content map[string]any
	if err := json.Unmarshal(recs[0].Content, &content); err != nil {
		t.Fatalf("decode reminder: %v", err)
	}
	if content["date"] != "2025-06-01" {
		t.Fatalf("date = %v, want converted 2025-06-01", content["date"])
	}
}

func TestHandleMessageImportantNoteSaved(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.orch.HandleMessage(ctx, "+237650000001", "Please remember my supplier prefers bank transfer")

	recs, err := f.mem.Retrieve(ctx, "+237650000001", memory.CategoryPersonal, 5, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("personal records = %d, want the important note", len(recs))
	}
	var content map[string]any
	if err := json.Unmarshal(recs[0].Content, &content); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if content["type"] != "important_note" {
		t.Fatalf("type = %v, want important_note", content["type"])
	}
	if f.brain.Calls() != 1 {
		t.Fatalf("brain calls = %d, want 1 (no FX or command intent)", f.brain.Calls())
	}
}

func TestHandleMessageBrainActionOutcomeAppended(t *testing.T) {
	f := setup(t)
	f.brain.Reply = brain.Reply{
		Text: "Sure thing.",
		Action: &brain.Invocation{
			Name:   "create_reminder",
			Params: map[string]any{"message": "call mom", "date": "2025-06-01"},
		},
	}

	reply := f.orch.HandleMessage(context.Background(), "+237650000001", "ok do your magic")
	if !strings.HasPrefix(reply, "Sure thing.") {
		t.Fatalf("reply = %q, want brain text first", reply)
	}
	if !strings.Contains(reply, "✅ Reminder created: call mom") {
		t.Fatalf("reply = %q, want appended action outcome", reply)
	}
}

func TestHandleMessageActionOutcomeNotDuplicated(t *testing.T) {
	f := setup(t)
	f.brain.Reply = brain.Reply{
		Text: "Done, reminder created: call mom.",
		Action: &brain.Invocation{
			Name:   "create_reminder",
			Params: map[string]any{"message": "call mom", "date": "2025-06-01"},
		},
	}

	reply := f.orch.HandleMessage(context.Background(), "+237650000001", "ok do your magic")
	if strings.Count(strings.ToLower(reply), "reminder created: call mom") != 1 {
		t.Fatalf("reply = %q, want outcome mentioned once", reply)
	}
}

func TestHandleMessageBrainErrorFallsBack(t *testing.T) {
	f := setup(t)
	f.brain.Err = errors.New("provider on fire")

	reply := f.orch.HandleMessage(context.Background(), "+237650000001", "ok are you free tomorrow")
	if reply != fallbackReply {
		t.Fatalf("reply = %q, want fallback apology", reply)
	}
}

func TestHandleMessageSubscribe(t *testing.T) {
	f := setup(t)

	reply := f.orch.HandleMessage(context.Background(), "whatsapp:+237650000001", "subscribe me please")
	if !strings.Contains(reply, "DAILY RATE SUBSCRIPTION") {
		t.Fatalf("reply = %q, want subscription confirmation", reply)
	}
	if len(f.subs.subscribed) != 1 || f.subs.subscribed[0] != "+237650000001" {
		t.Fatalf("subscribed = %v, want normalized owner", f.subs.subscribed)
	}
}

func TestHandleMessageGreeting(t *testing.T) {
	f := setup(t)

	reply := f.orch.HandleMessage(context.Background(), "+237650000001", "hello")
	if !strings.Contains(reply, "Available Commands") {
		t.Fatalf("reply = %q, want help menu", reply)
	}
}

func TestParseDirectCommandVariants(t *testing.T) {
	name, params := parseDirectCommand("send_message to +15551234 saying hello world")
	if name != "send_message" {
		t.Fatalf("name = %q, want send_message", name)
	}
	if params["recipient"] != "whatsapp:+15551234" || params["message"] != "hello world" {
		t.Fatalf("params = %v", params)
	}

	name, params = parseDirectCommand("Set a reminder to renew visa for 2025-09-15")
	if name != "create_reminder" {
		t.Fatalf("name = %q, want create_reminder", name)
	}
	if params["date"] != "2025-09-15" {
		t.Fatalf("date = %v, want ISO date unchanged", params["date"])
	}

	if name, _ := parseDirectCommand("what a lovely day"); name != "" {
		t.Fatalf("name = %q, want no command", name)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2025-06-01", "2025-06-01"},
		{"6/1/25", "2025-06-01"},
		{"12/31/2025", "2025-12-31"},
	}
	for _, tc := range cases {
		if got := normalizeDate(tc.in); got != tc.want {
			t.Fatalf("normalizeDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
