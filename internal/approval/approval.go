// Package approval implements the human-in-the-loop approval protocol: a
// preview message with action buttons is sent to a chat channel, then inbound
// events are polled with an increasing cursor until a human decides.
//
// The decision wait is unbounded (a human may be slow); the follow-up wait for
// rejection feedback text is bounded so a rejection never blocks forever. Both
// waits run on the same timed-wait primitive; the bound is just a parameter.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Outcome is the terminal result of an approval session.
type Outcome int

const (
	// OutcomeApproved means the human accepted the preview.
	OutcomeApproved Outcome = iota
	// OutcomeRejectedNoFeedback means the human rejected without elaboration.
	OutcomeRejectedNoFeedback
	// OutcomeRejectedWithFeedback means the human rejected and supplied
	// free-text feedback.
	OutcomeRejectedWithFeedback
	// OutcomeTimedOut means the human pressed reject-and-teach but never sent
	// feedback text within the window. Callers treat it like a plain rejection.
	OutcomeTimedOut
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomeRejectedNoFeedback:
		return "rejected_no_feedback"
	case OutcomeRejectedWithFeedback:
		return "rejected_with_feedback"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Button is one action affordance on the preview message.
type Button struct {
	Label string
	Data  string
}

// Event is one inbound chat event normalized from the transport. Exactly one
// of ButtonData and Text is set.
type Event struct {
	// ID is the transport's monotonically increasing event id (the cursor).
	ID int64
	// ButtonData is the callback payload of a button press, empty otherwise.
	ButtonData string
	// MessageID is the message carrying the pressed button.
	MessageID int64
	// Text is the body of a free-text reply, empty otherwise.
	Text string
}

// Gateway is the chat transport the protocol drives. Defined here,
// consumer-side; pkg/telegram is adapted to it.
type Gateway interface {
	// SendPreview sends the preview message with action buttons and returns
	// the message id (needed to clear the buttons later).
	SendPreview(ctx context.Context, text string, buttons []Button) (int64, error)
	// ClearButtons removes the action buttons from a sent message. Must be
	// safe to call on a message whose buttons are already cleared.
	ClearButtons(ctx context.Context, messageID int64) error
	// SendText sends a plain follow-up message.
	SendText(ctx context.Context, text string) error
	// PollEvents returns events with id >= sinceCursor, in id order.
	PollEvents(ctx context.Context, sinceCursor int64) ([]Event, error)
}

// Request describes one approval session.
type Request struct {
	// CallbackID tags the session's buttons so inbound presses can be
	// correlated; unrelated presses are ignored.
	CallbackID string
	// Preview is the content shown to the reviewer.
	Preview string
	// AllowFeedback selects Reject-and-Teach instead of plain Reject.
	AllowFeedback bool
	// MemoryLines optionally shows the retrieved feedback rules that were
	// applied, so the reviewer sees why the draft looks the way it does.
	MemoryLines []string
}

// Result is the session outcome. Feedback is set only for
// OutcomeRejectedWithFeedback.
type Result struct {
	Outcome  Outcome
	Feedback string
}

// Callback data wire format, kept stable across deployments.
const (
	acceptPrefix = "yes_"
	rejectPrefix = "no_"
	teachPrefix  = "teach_"
)

const (
	defaultDecisionPollInterval = 3 * time.Second
	defaultFeedbackPollInterval = 2 * time.Second
	defaultFeedbackTimeout      = 120 * time.Second
)

// Protocol runs approval sessions against a Gateway.
type Protocol struct {
	gateway              Gateway
	decisionPollInterval time.Duration
	feedbackPollInterval time.Duration
	feedbackTimeout      time.Duration
	logger               *slog.Logger
}

// Option configures the Protocol.
type Option func(*Protocol)

// WithIntervals overrides the decision and feedback poll intervals.
func WithIntervals(decision, feedback time.Duration) Option {
	return func(p *Protocol) {
		p.decisionPollInterval = decision
		p.feedbackPollInterval = feedback
	}
}

// WithFeedbackTimeout overrides the bounded feedback wait window.
func WithFeedbackTimeout(d time.Duration) Option {
	return func(p *Protocol) {
		p.feedbackTimeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Protocol) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProtocol creates an approval protocol on the given gateway.
func NewProtocol(gateway Gateway, opts ...Option) *Protocol {
	p := &Protocol{
		gateway:              gateway,
		decisionPollInterval: defaultDecisionPollInterval,
		feedbackPollInterval: defaultFeedbackPollInterval,
		feedbackTimeout:      defaultFeedbackTimeout,
		logger:               slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// session is the ephemeral per-approval state. It lives only for one Await
// call and is never persisted.
type session struct {
	callbackID       string
	previewMessageID int64
	cursor           int64
}

// Await sends the preview and blocks until the session reaches a terminal
// outcome. Transport errors during polling never terminate the session; only
// a matching event or the feedback timeout does. The error return is reserved
// for failure to start the session and for context cancellation.
func (p *Protocol) Await(ctx context.Context, req Request) (Result, error) {
	buttons := []Button{{Label: "Accept", Data: acceptPrefix + req.CallbackID}}
	if req.AllowFeedback {
		buttons = append(buttons, Button{Label: "Reject & Teach", Data: teachPrefix + req.CallbackID})
	} else {
		buttons = append(buttons, Button{Label: "Reject", Data: rejectPrefix + req.CallbackID})
	}

	messageID, err := p.gateway.SendPreview(ctx, previewText(req), buttons)
	if err != nil {
		return Result{}, fmt.Errorf("send preview: %w", err)
	}

	s := &session{callbackID: req.CallbackID, previewMessageID: messageID}

	p.logger.InfoContext(ctx, "awaiting approval decision", "callback_id", req.CallbackID)

	return p.awaitDecision(ctx, s)
}

// awaitDecision is the AWAITING_DECISION state: an unbounded wait for a
// button press tagged with this session's callback id.
func (p *Protocol) awaitDecision(ctx context.Context, s *session) (Result, error) {
	event, ok, err := p.waitForEvent(ctx, s, func(e Event) bool {
		switch e.ButtonData {
		case acceptPrefix + s.callbackID, rejectPrefix + s.callbackID, teachPrefix + s.callbackID:
			return true
		default:
			return false
		}
	}, 0, p.decisionPollInterval)
	if err != nil {
		return Result{}, err
	}

	if !ok {
		// Unreachable: the decision wait has no timeout.
		return Result{Outcome: OutcomeTimedOut}, nil
	}

	switch event.ButtonData {
	case acceptPrefix + s.callbackID:
		p.clearButtons(ctx, s, event)
		p.logger.InfoContext(ctx, "approval received", "callback_id", s.callbackID)

		return Result{Outcome: OutcomeApproved}, nil

	case teachPrefix + s.callbackID:
		p.logger.InfoContext(ctx, "rejected, waiting for feedback", "callback_id", s.callbackID)

		return p.awaitFeedbackText(ctx, s)

	default:
		p.clearButtons(ctx, s, event)
		p.logger.InfoContext(ctx, "rejected without feedback", "callback_id", s.callbackID)

		return Result{Outcome: OutcomeRejectedNoFeedback}, nil
	}
}

// awaitFeedbackText is the AWAITING_FEEDBACK_TEXT state: a bounded wait for
// the first free-text reply. Further button presses are consumed but ignored.
func (p *Protocol) awaitFeedbackText(ctx context.Context, s *session) (Result, error) {
	if err := p.gateway.SendText(ctx, "I'm listening. What should I change? (Reply in text)"); err != nil {
		// The reviewer already pressed teach; keep waiting even if the ack
		// did not go through.
		p.logger.WarnContext(ctx, "failed to send feedback prompt", "callback_id", s.callbackID, "error", err)
	}

	event, ok, err := p.waitForEvent(ctx, s, func(e Event) bool {
		return e.Text != ""
	}, p.feedbackTimeout, p.feedbackPollInterval)
	if err != nil {
		return Result{}, err
	}

	if !ok {
		p.logger.InfoContext(ctx, "feedback window elapsed", "callback_id", s.callbackID)

		return Result{Outcome: OutcomeTimedOut}, nil
	}

	if err := p.gateway.SendText(ctx, "Got it. I've saved this rule for next time."); err != nil {
		p.logger.WarnContext(ctx, "failed to send feedback confirmation", "callback_id", s.callbackID, "error", err)
	}

	p.logger.InfoContext(ctx, "feedback received", "callback_id", s.callbackID)

	return Result{Outcome: OutcomeRejectedWithFeedback, Feedback: event.Text}, nil
}

// waitForEvent polls the gateway with the session cursor until an event
// matches, the timeout elapses (timeout 0 waits forever), or ctx is
// cancelled. Transport errors are logged and retried after the poll interval.
// Non-matching events advance the cursor and are ignored; events after the
// matching one are left unconsumed.
func (p *Protocol) waitForEvent(
	ctx context.Context, s *session, match func(Event) bool, timeout, interval time.Duration,
) (Event, bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		events, err := p.gateway.PollEvents(ctx, s.cursor+1)
		if err != nil {
			p.logger.WarnContext(ctx, "polling chat events failed", "callback_id", s.callbackID, "error", err)
		} else {
			for _, event := range events {
				s.cursor = event.ID
				if match(event) {
					return event, true, nil
				}
			}
		}

		if timeout > 0 && !time.Now().Before(deadline) {
			return Event{}, false, nil
		}

		select {
		case <-ctx.Done():
			return Event{}, false, fmt.Errorf("await approval: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// clearButtons removes the action affordances from the pressed message. The
// cleanup is idempotent UI hygiene; failures are logged, never fatal.
func (p *Protocol) clearButtons(ctx context.Context, s *session, event Event) {
	messageID := event.MessageID
	if messageID == 0 {
		messageID = s.previewMessageID
	}

	if err := p.gateway.ClearButtons(ctx, messageID); err != nil {
		p.logger.WarnContext(ctx, "failed to clear approval buttons", "callback_id", s.callbackID, "error", err)
	}
}

// previewText frames the reviewer-facing message, appending the retrieved
// memory rules when present.
func previewText(req Request) string {
	var b strings.Builder

	b.WriteString("*HITL Review Required*\n\n")
	b.WriteString(req.Preview)

	if len(req.MemoryLines) > 0 {
		b.WriteString("\n\n*Memory Used:*\n")
		b.WriteString(strings.Join(req.MemoryLines, "\n"))
	}

	return b.String()
}
