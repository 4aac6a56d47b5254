package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/evafx/internal/kvstore"
	"github.com/ent0n29/evafx/internal/memory"
	"github.com/ent0n29/evafx/internal/messaging"
	"github.com/ent0n29/evafx/internal/observability"
)

const (
	trackingTTL = 24 * time.Hour

	// Pending records older than this are reported as failed; the worker
	// that owned them is gone.
	stalePendingAfter = time.Hour
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Result is the uniform outcome of one action execution. Callers never see
// raw errors; failures carry operator-facing text in Error.
type Result struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	MemoryID string         `json:"memory_id,omitempty"`
	SID      string         `json:"sid,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Tracking is the durable audit record of one execution attempt.
type Tracking struct {
	ID          string         `json:"id"`
	Owner       string         `json:"phone_number"`
	Action      string         `json:"action_name"`
	Params      map[string]any `json:"params"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Result      *Result        `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Executor validates and runs actions, journaling every attempt to the
// durable store.
type Executor struct {
	mem     *memory.Store
	kv      kvstore.Store
	gateway messaging.Gateway
	from    string
	metrics *observability.Metrics
	now     func() time.Time
}

func NewExecutor(mem *memory.Store, kv kvstore.Store, gateway messaging.Gateway, from string, metrics *observability.Metrics) *Executor {
	return &Executor{
		mem:     mem,
		kv:      kv,
		gateway: gateway,
		from:    from,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func trackingKey(id string) string { return "action:" + id }

func (e *Executor) writeTracking(ctx context.Context, tr *Tracking) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal tracking %s: %w", tr.ID, err)
	}
	if err := e.kv.Set(ctx, trackingKey(tr.ID), string(raw), trackingTTL); err != nil {
		if e.metrics != nil {
			e.metrics.StoreErrors.WithLabelValues("action_tracking").Inc()
		}
		return err
	}
	return nil
}

// Execute runs one action for owner. The tracking record moves from pending
// to exactly one terminal status.
func (e *Executor) Execute(ctx context.Context, owner, name string, params map[string]any) Result {
	owner = memory.NormalizeOwner(owner)
	tr := &Tracking{
		ID:        uuid.NewString(),
		Owner:     owner,
		Action:    name,
		Params:    params,
		Status:    StatusPending,
		CreatedAt: e.now(),
	}
	log.Printf("actions: starting %s for %s id=%s", name, owner, tr.ID)

	if err := e.writeTracking(ctx, tr); err != nil {
		log.Printf("actions: tracking write failed for %s: %v", tr.ID, err)
		return e.finish(ctx, tr, Result{Success: false, Error: "Database error: " + err.Error()})
	}

	if v := Validate(name, params); !v.Valid {
		return e.finish(ctx, tr, Result{Success: false, Error: v.Problem})
	}

	var (
		res Result
		err error
	)
	switch name {
	case "create_reminder":
		res, err = e.createReminder(ctx, owner, params)
	case "send_message":
		res, err = e.sendMessage(ctx, owner, params)
	case "schedule_event":
		res, err = e.scheduleEvent(ctx, owner, params)
	case "update_preference":
		res, err = e.updatePreference(ctx, owner, params)
	case "set_goal":
		res, err = e.setGoal(ctx, owner, params)
	default:
		err = fmt.Errorf("unhandled action: %s", name)
	}
	if err != nil {
		return e.finish(ctx, tr, Result{Success: false, Error: err.Error()})
	}
	return e.finish(ctx, tr, res)
}

// finish writes the terminal tracking state. It is the only place a status
// other than pending is ever written.
func (e *Executor) finish(ctx context.Context, tr *Tracking, res Result) Result {
	now := e.now()
	tr.CompletedAt = &now
	if res.Success {
		tr.Status = StatusCompleted
		tr.Result = &res
		log.Printf("actions: completed %s id=%s", tr.Action, tr.ID)
	} else {
		tr.Status = StatusFailed
		tr.Error = res.Error
		log.Printf("actions: failed %s id=%s: %s", tr.Action, tr.ID, res.Error)
	}
	if err := e.writeTracking(ctx, tr); err != nil {
		log.Printf("actions: terminal tracking write failed for %s: %v", tr.ID, err)
	}
	if e.metrics != nil {
		e.metrics.Actions.WithLabelValues(tr.Action, tr.Status).Inc()
	}
	return res
}

// Lookup fetches a tracking record. Pending records past the freshness
// window are reported as failed.
func (e *Executor) Lookup(ctx context.Context, id string) (Tracking, error) {
	raw, err := e.kv.Get(ctx, trackingKey(id))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Tracking{}, err
		}
		return Tracking{}, fmt.Errorf("lookup action %s: %w", id, err)
	}
	var tr Tracking
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		return Tracking{}, fmt.Errorf("decode action %s: %w", id, err)
	}
	if tr.Status == StatusPending && e.now().Sub(tr.CreatedAt) > stalePendingAfter {
		tr.Status = StatusFailed
		tr.Error = "action timed out"
	}
	return tr, nil
}

func (e *Executor) createReminder(ctx context.Context, owner string, params map[string]any) (Result, error) {
	reminder := map[string]any{
		"message":    strings.TrimSpace(stringParam(params["message"])),
		"date":       stringParam(params["date"]),
		"time":       optString(params, "time", "09:00"),
		"priority":   optString(params, "priority", "normal"),
		"status":     "pending",
		"created_at": e.now().Format(time.RFC3339),
	}
	memoryID, err := e.mem.Save(ctx, owner, memory.CategoryReminder, reminder)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save reminder: %w", err)
	}
	return Result{
		Success:  true,
		Message:  fmt.Sprintf("Reminder created: %s", stringParam(params["message"])),
		MemoryID: memoryID,
		Details:  reminder,
	}, nil
}

func (e *Executor) sendMessage(ctx context.Context, owner string, params map[string]any) (Result, error) {
	recipient := messaging.NormalizeWhatsApp(stringParam(params["recipient"]))
	body := strings.TrimSpace(stringParam(params["message"]))

	sid, err := e.gateway.Send(ctx, recipient, e.from, body)
	if err != nil {
		// The provider's own text goes to the user unchanged.
		return Result{}, err
	}

	sent := map[string]any{
		"recipient": recipient,
		"message":   body,
		"sid":       sid,
		"sent_at":   e.now().Format(time.RFC3339),
	}
	if _, err := e.mem.Save(ctx, owner, memory.CategoryContact, map[string]any{
		"type": "sent_message",
		"data": sent,
	}); err != nil {
		log.Printf("actions: sent message journal failed for %s: %v", owner, err)
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Message sent to %s", recipient),
		SID:     sid,
	}, nil
}

func (e *Executor) scheduleEvent(ctx context.Context, owner string, params map[string]any) (Result, error) {
	event := map[string]any{
		"title":       strings.TrimSpace(stringParam(params["title"])),
		"date":        stringParam(params["date"]),
		"time":        stringParam(params["time"]),
		"duration":    optString(params, "duration", "60"),
		"description": optString(params, "description", ""),
		"location":    optString(params, "location", ""),
		"status":      "scheduled",
		"created_at":  e.now().Format(time.RFC3339),
	}
	memoryID, err := e.mem.Save(ctx, owner, memory.CategoryEvent, event)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save event: %w", err)
	}
	return Result{
		Success:  true,
		Message:  fmt.Sprintf("Event scheduled: %s", stringParam(params["title"])),
		MemoryID: memoryID,
		Details:  event,
	}, nil
}

func (e *Executor) updatePreference(ctx context.Context, owner string, params map[string]any) (Result, error) {
	pref := map[string]any{
		"name":       strings.ToLower(strings.TrimSpace(stringParam(params["preference_name"]))),
		"value":      params["preference_value"],
		"category":   optString(params, "category", "general"),
		"updated_at": e.now().Format(time.RFC3339),
	}

	existing, err := e.mem.Retrieve(ctx, owner, memory.CategoryPreference, 10, 0)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	var memoryID string
	for _, rec := range existing {
		var content struct {
			Name     string `json:"name"`
			Category string `json:"category"`
		}
		if err := json.Unmarshal(rec.Content, &content); err != nil {
			continue
		}
		if content.Name == pref["name"] && content.Category == pref["category"] {
			if _, err := e.mem.Update(ctx, owner, rec.ID, pref); err != nil {
				return Result{}, fmt.Errorf("failed to save preference: %w", err)
			}
			memoryID = rec.ID
			break
		}
	}
	if memoryID == "" {
		memoryID, err = e.mem.Save(ctx, owner, memory.CategoryPreference, pref)
		if err != nil {
			return Result{}, fmt.Errorf("failed to save preference: %w", err)
		}
	}
	return Result{
		Success:  true,
		Message:  fmt.Sprintf("Preference updated: %s", stringParam(params["preference_name"])),
		MemoryID: memoryID,
		Details:  pref,
	}, nil
}

func (e *Executor) setGoal(ctx context.Context, owner string, params map[string]any) (Result, error) {
	milestones, ok := params["milestones"]
	if !ok {
		milestones = []any{}
	}
	goal := map[string]any{
		"description": strings.TrimSpace(stringParam(params["goal_description"])),
		"target_date": stringParam(params["target_date"]),
		"milestones":  milestones,
		"priority":    optString(params, "priority", "medium"),
		"category":    optString(params, "category", "personal"),
		"status":      "active",
		"progress":    0,
		"created_at":  e.now().Format(time.RFC3339),
	}
	memoryID, err := e.mem.Save(ctx, owner, memory.CategoryPersonal, map[string]any{
		"type": "goal",
		"data": goal,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to save goal: %w", err)
	}
	return Result{
		Success:  true,
		Message:  fmt.Sprintf("Goal set: %s", stringParam(params["goal_description"])),
		MemoryID: memoryID,
		Details:  goal,
	}, nil
}

func optString(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s := strings.TrimSpace(stringParam(v)); s != "" {
			return s
		}
	}
	return fallback
}
