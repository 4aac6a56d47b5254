package conversation

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/ent0n29/evafx/internal/actions"
	"github.com/ent0n29/evafx/internal/brain"
	"github.com/ent0n29/evafx/internal/memory"
	"github.com/ent0n29/evafx/internal/observability"
	"github.com/ent0n29/evafx/internal/policy"
)

const fallbackReply = "Sorry, I'm experiencing technical difficulties. Please try again in a moment."

var importantPattern = regexp.MustCompile(`(?i)\b(remember|note|don't forget|important)\b`)

// Orchestrator turns one inbound message into one reply, routing between the
// FX engine, direct commands, and the model.
type Orchestrator struct {
	mem     *memory.Store
	exec    *actions.Executor
	brain   brain.Brain
	fx      *FXRouter
	metrics *observability.Metrics
}

func New(mem *memory.Store, exec *actions.Executor, b brain.Brain, fx *FXRouter, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{mem: mem, exec: exec, brain: b, fx: fx, metrics: metrics}
}

// HandleMessage processes one user turn. It always returns a non-empty
// reply; internal failures degrade to an apology.
func (o *Orchestrator) HandleMessage(ctx context.Context, from, text string) string {
	start := time.Now()
	owner := memory.NormalizeOwner(from)

	history, err := o.mem.History(ctx, owner)
	if err != nil {
		log.Printf("conversation: history load failed for %s, starting fresh: %v", policy.MaskPhone(owner), err)
		history = nil
	}
	history = append(history, memory.Turn{Role: memory.RoleUser, Content: text})

	o.noteImportant(ctx, owner, text)

	reply, actionResult := o.route(ctx, owner, text, history)

	reply = shapeReply(reply, actionResult)
	if strings.TrimSpace(reply) == "" {
		reply = fallbackReply
	}

	history = append(history, memory.Turn{Role: memory.RoleAssistant, Content: reply})
	if err := o.mem.SaveHistory(ctx, owner, history); err != nil {
		log.Printf("conversation: history save failed for %s: %v", policy.MaskPhone(owner), err)
	}

	if o.metrics != nil {
		o.metrics.ObserveTurnStage("turn_total", time.Since(start))
	}
	return reply
}

// route picks the first handler that claims the message: FX intents, then
// direct commands, then the model.
func (o *Orchestrator) route(ctx context.Context, owner, text string, history []memory.Turn) (string, *actions.Result) {
	if o.fx != nil {
		if fxReply, ok := o.fx.Handle(ctx, owner, text); ok {
			if o.metrics != nil {
				o.metrics.ObserveIndicator("fx_intent")
			}
			return fxReply, nil
		}
	}

	if name, params := parseDirectCommand(text); name != "" {
		log.Printf("conversation: direct command %s from %s", name, policy.MaskPhone(owner))
		res := o.exec.Execute(ctx, owner, name, params)
		if res.Success {
			return "✅ " + orDefault(res.Message, "Action completed successfully."), &res
		}
		return "❌ " + orDefault(res.Error, "Action failed."), &res
	}

	return o.completeWithBrain(ctx, owner, history)
}

// noteImportant journals messages the user flagged as worth remembering.
// Failures are logged, never surfaced.
func (o *Orchestrator) noteImportant(ctx context.Context, owner, text string) {
	if !importantPattern.MatchString(text) {
		return
	}
	if _, err := o.mem.Save(ctx, owner, memory.CategoryPersonal, map[string]any{
		"type":    "important_note",
		"content": text,
	}); err != nil {
		log.Printf("conversation: important note save failed for %s: %v", policy.MaskPhone(owner), err)
		return
	}
	log.Printf("conversation: saved important information for %s", policy.MaskPhone(owner))
}

func (o *Orchestrator) completeWithBrain(ctx context.Context, owner string, history []memory.Turn) (string, *actions.Result) {
	bundleStart := time.Now()
	memories := o.memoryBundle(ctx, owner)
	if o.metrics != nil {
		o.metrics.ObserveTurnStage("inbound_to_memory_bundle", time.Since(bundleStart))
	}

	reply, err := o.brain.Complete(ctx, history, memories)
	if err != nil {
		log.Printf("conversation: brain failed for %s: %v", policy.MaskPhone(owner), err)
		if o.metrics != nil {
			o.metrics.ObserveIndicator("brain_fallback")
		}
		return fallbackReply, nil
	}

	if reply.Action == nil {
		return reply.Text, nil
	}
	res := o.exec.Execute(ctx, owner, reply.Action.Name, reply.Action.Params)
	if _, err := o.mem.Save(ctx, owner, memory.CategoryPersonal, map[string]any{
		"type":        "executed_action",
		"action_name": reply.Action.Name,
		"result":      res,
	}); err != nil {
		log.Printf("conversation: executed action journal failed for %s: %v", policy.MaskPhone(owner), err)
	}
	return reply.Text, &res
}

// memoryBundle collects the context the model sees: recent personal notes,
// reminders, events and preferences. Partial results are fine.
func (o *Orchestrator) memoryBundle(ctx context.Context, owner string) []memory.Record {
	var bundle []memory.Record
	fetch := func(category memory.Category, limit int, since time.Duration) {
		recs, err := o.mem.Retrieve(ctx, owner, category, limit, since)
		if err != nil {
			log.Printf("conversation: memory bundle %s fetch failed for %s: %v", category, policy.MaskPhone(owner), err)
			return
		}
		bundle = append(bundle, recs...)
	}
	fetch(memory.CategoryPersonal, 5, 30*24*time.Hour)
	fetch(memory.CategoryReminder, 5, 0)
	fetch(memory.CategoryEvent, 5, 0)
	fetch(memory.CategoryPreference, 10, 0)
	return bundle
}

// shapeReply appends the action outcome unless the reply already mentions it.
func shapeReply(reply string, res *actions.Result) string {
	if res == nil {
		return reply
	}
	if res.Success {
		msg := orDefault(res.Message, "Action completed successfully.")
		if !strings.Contains(strings.ToLower(reply), strings.ToLower(msg)) {
			return reply + "\n\n✅ " + msg
		}
		return reply
	}
	msg := orDefault(res.Error, "Action could not be completed.")
	if !strings.Contains(strings.ToLower(reply), strings.ToLower(msg)) {
		return reply + "\n\n❌ " + msg
	}
	return reply
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
