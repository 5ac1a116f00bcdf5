// Package calls owns the lifecycle of an outbound reservation call: placing
// it, registering its state, and reacting to its terminal status.
package calls

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/room4-2/DineCall/callstate"
	"github.com/room4-2/DineCall/conversation"
	"github.com/room4-2/DineCall/intent"
	"github.com/room4-2/DineCall/telephony"
	"github.com/room4-2/DineCall/twiml"
)

// ErrTooManyCalls means the active-call cap is reached.
var ErrTooManyCalls = errors.New("too many calls in flight right now, please try again in a few minutes")

// Dialer places outbound calls.
type Dialer interface {
	PlaceCall(ctx context.Context, to, document, statusCallbackURL string) (*telephony.Call, error)
}

// TurnEngine is the subset of the conversation engine the controller needs.
type TurnEngine interface {
	OpeningTurn(ctx context.Context, c *callstate.Context) (*twiml.Response, error)
	AnalyzeOutcome(ctx context.Context, c callstate.Context) (conversation.Outcome, error)
}

// Notifier pushes a result message back to the chat channel that asked for
// the reservation.
type Notifier interface {
	Notify(channelID, message string) error
}

// Controller wires intent requests to the telephony vendor and handles
// terminal status webhooks.
type Controller struct {
	store     *callstate.Store
	engine    TurnEngine
	dialer    Dialer
	notifier  Notifier
	statusURL string
	maxActive int
}

// NewController creates a controller. notifier may be nil; maxActive <= 0
// disables the cap.
func NewController(store *callstate.Store, engine TurnEngine, dialer Dialer, notifier Notifier, statusURL string, maxActive int) *Controller {
	return &Controller{
		store:     store,
		engine:    engine,
		dialer:    dialer,
		notifier:  notifier,
		statusURL: statusURL,
		maxActive: maxActive,
	}
}

// SetNotifier installs the notifier after construction. The chat session and
// the controller reference each other, so one side is wired late; call this
// before any call is placed.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// StartCall places an outbound reservation call and registers its state under
// the vendor-issued call SID before returning. The returned string is the
// chat-facing confirmation that the call is underway.
func (c *Controller) StartCall(ctx context.Context, req *intent.Request, channelID string) (string, error) {
	if c.maxActive > 0 && c.store.ActiveCount() >= c.maxActive {
		return "", ErrTooManyCalls
	}

	callCtx := &callstate.Context{
		RequestID:       uuid.NewString(),
		ChannelID:       channelID,
		RestaurantPhone: req.RestaurantPhone,
		PartySize:       req.PartySize,
		ReservationTime: req.ReservationTime,
		CustomerName:    req.CustomerName,
		SpecialRequests: req.SpecialRequests,
		Status:          callstate.StatusInProgress,
	}

	opening, err := c.engine.OpeningTurn(ctx, callCtx)
	if err != nil {
		return "", fmt.Errorf("failed to prepare the opening line: %w", err)
	}
	document, err := opening.Render()
	if err != nil {
		return "", fmt.Errorf("failed to render the opening document: %w", err)
	}

	call, err := c.dialer.PlaceCall(ctx, req.RestaurantPhone, document, c.statusURL)
	if err != nil {
		return "", err
	}

	// The opening document travels inline with the placement request, so no
	// webhook for this SID can arrive before this registration completes.
	if err := c.store.Register(ctx, call.SID, callCtx); err != nil {
		log.Printf("❌ Failed to register call %s: %v", call.SID, err)
		return "", fmt.Errorf("failed to track call %s: %w", call.SID, err)
	}

	log.Printf("📞 Call %s started to %s (request %s)", call.SID, req.RestaurantPhone, callCtx.RequestID)
	return startSummary(req), nil
}

// OnCallTerminal handles a terminal status webhook from the vendor. It is
// idempotent: retried webhooks for an already-finished call do nothing.
func (c *Controller) OnCallTerminal(ctx context.Context, callSID, vendorStatus string) {
	if !telephony.IsTerminalStatus(vendorStatus) {
		return
	}

	status := callstate.StatusFailed
	if vendorStatus == "completed" {
		status = callstate.StatusCompleted
	}

	prev, err := c.store.SetStatus(ctx, callSID, status)
	if err != nil {
		log.Printf("⚠️ Terminal status %q for unknown call %s", vendorStatus, callSID)
		return
	}
	if prev.Terminal() {
		return
	}

	snap, err := c.store.Get(callSID)
	if err != nil {
		log.Printf("⚠️ Call %s vanished before its result could be reported", callSID)
		return
	}

	message := c.resultMessage(ctx, snap, vendorStatus)
	if c.notifier != nil && snap.ChannelID != "" {
		if err := c.notifier.Notify(snap.ChannelID, message); err != nil {
			log.Printf("❌ Failed to deliver call result for %s: %v", callSID, err)
		}
	}
	log.Printf("✅ Call %s finished (%s)", callSID, vendorStatus)
	c.store.Remove(ctx, callSID)
}

func (c *Controller) resultMessage(ctx context.Context, snap callstate.Context, vendorStatus string) string {
	if vendorStatus != "completed" {
		return fmt.Sprintf("❌ The call to %s ended without connecting (%s). No reservation was made.",
			snap.RestaurantPhone, vendorStatus)
	}

	outcome, err := c.engine.AnalyzeOutcome(ctx, snap)
	if err != nil {
		log.Printf("❌ Outcome analysis failed for request %s: %v", snap.RequestID, err)
		return fmt.Sprintf("⚠️ The call to %s ended, but I couldn't tell whether the reservation was confirmed. You may want to call them to double-check.",
			snap.RestaurantPhone)
	}
	if outcome.Confirmed {
		return "✅ " + outcome.Summary
	}
	return "⚠️ " + outcome.Summary
}

func startSummary(req *intent.Request) string {
	special := req.SpecialRequests
	if special == "" {
		special = "None"
	}
	return fmt.Sprintf("✓ Starting call with %s for your reservation.\n"+
		"I'll handle the conversation and update you on the result.\n"+
		"Reservation details:\n"+
		"- Party size: %d\n"+
		"- Time: %s\n"+
		"- Name: %s\n"+
		"- Special requests: %s",
		req.RestaurantPhone,
		req.PartySize,
		req.ReservationTime.Format("03:04 PM on Monday, January 02"),
		req.CustomerName,
		special)
}
