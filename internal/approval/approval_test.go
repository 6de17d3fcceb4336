package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollStep is one scripted PollEvents response.
type pollStep struct {
	events []Event
	err    error
}

// fakeGateway replays a script of poll responses and records everything the
// protocol does to it.
type fakeGateway struct {
	script []pollStep

	previewText    string
	previewButtons []Button
	previewErr     error

	sentTexts     []string
	clearedIDs    []int64
	polledCursors []int64
	nextMessageID int64
}

func (g *fakeGateway) SendPreview(_ context.Context, text string, buttons []Button) (int64, error) {
	if g.previewErr != nil {
		return 0, g.previewErr
	}

	g.previewText = text
	g.previewButtons = buttons
	g.nextMessageID = 100

	return g.nextMessageID, nil
}

func (g *fakeGateway) ClearButtons(_ context.Context, messageID int64) error {
	g.clearedIDs = append(g.clearedIDs, messageID)

	return nil
}

func (g *fakeGateway) SendText(_ context.Context, text string) error {
	g.sentTexts = append(g.sentTexts, text)

	return nil
}

func (g *fakeGateway) PollEvents(_ context.Context, sinceCursor int64) ([]Event, error) {
	g.polledCursors = append(g.polledCursors, sinceCursor)

	if len(g.script) == 0 {
		return nil, nil
	}

	step := g.script[0]
	g.script = g.script[1:]

	return step.events, step.err
}

func newTestProtocol(gateway Gateway, opts ...Option) *Protocol {
	base := []Option{WithIntervals(time.Millisecond, time.Millisecond)}

	return NewProtocol(gateway, append(base, opts...)...)
}

func TestAwaitApproved(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{
			{ID: 1, ButtonData: "yes_other-session"},
			{ID: 2, ButtonData: "no_other-session"},
		}},
		{events: []Event{
			{ID: 3, ButtonData: "yes_post-1", MessageID: 42},
		}},
	}}

	result, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID:    "post-1",
		Preview:       "a draft post",
		AllowFeedback: true,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, result.Outcome)
	assert.Empty(t, result.Feedback)

	// Unrelated presses were consumed, so the second poll resumed past them.
	assert.Equal(t, []int64{1, 3}, []int64{gateway.polledCursors[0], gateway.polledCursors[1]})
	assert.Equal(t, []int64{42}, gateway.clearedIDs)
}

func TestAwaitRejectedNoFeedback(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{{ID: 1, ButtonData: "no_kw-7", MessageID: 9}}},
	}}

	result, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID: "kw-7",
		Preview:    "keyword: valuation",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedNoFeedback, result.Outcome)
	assert.Equal(t, []int64{9}, gateway.clearedIDs)
	assert.Empty(t, gateway.sentTexts, "plain rejection must not prompt for feedback")
}

func TestAwaitRejectedWithFeedback(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{{ID: 1, ButtonData: "teach_post-1", MessageID: 7}}},
		{events: []Event{
			// A stray press during the feedback wait is ignored, not terminal.
			{ID: 2, ButtonData: "yes_post-1"},
			{ID: 3, Text: "be funnier"},
		}},
	}}

	result, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID:    "post-1",
		Preview:       "a draft post",
		AllowFeedback: true,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedWithFeedback, result.Outcome)
	assert.Equal(t, "be funnier", result.Feedback)

	require.Len(t, gateway.sentTexts, 2)
	assert.Contains(t, gateway.sentTexts[0], "What should I change")
	assert.Contains(t, gateway.sentTexts[1], "saved this rule")
}

func TestAwaitFeedbackTimesOut(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{{ID: 1, ButtonData: "teach_post-1", MessageID: 7}}},
	}}

	protocol := newTestProtocol(gateway, WithFeedbackTimeout(25*time.Millisecond))

	result, err := protocol.Await(context.Background(), Request{
		CallbackID:    "post-1",
		Preview:       "a draft post",
		AllowFeedback: true,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, result.Outcome)
	assert.Empty(t, result.Feedback)

	require.Len(t, gateway.sentTexts, 1, "no confirmation after a timeout")
	assert.Contains(t, gateway.sentTexts[0], "What should I change")
}

func TestAwaitRetriesTransportErrors(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{events: []Event{{ID: 1, ButtonData: "yes_post-1", MessageID: 5}}},
	}}

	result, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID:    "post-1",
		Preview:       "a draft post",
		AllowFeedback: true,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, result.Outcome)
	assert.Len(t, gateway.polledCursors, 3)
}

func TestAwaitStopsConsumingAfterTerminalEvent(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{
			{ID: 1, ButtonData: "yes_post-1", MessageID: 5},
			// A duplicate press behind the terminal event stays unconsumed.
			{ID: 2, ButtonData: "yes_post-1", MessageID: 5},
		}},
	}}

	result, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID:    "post-1",
		Preview:       "a draft post",
		AllowFeedback: true,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, result.Outcome)
	assert.Len(t, gateway.polledCursors, 1)
	assert.Equal(t, []int64{5}, gateway.clearedIDs, "buttons cleared exactly once")
}

func TestAwaitPreviewFraming(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{{ID: 1, ButtonData: "yes_post-1"}}},
	}}

	_, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID:    "post-1",
		Preview:       "a draft post",
		AllowFeedback: true,
		MemoryLines: []string{
			"be funnier (Score: 0.50)",
			"avoid jargon (Score: 0.31)",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, gateway.previewText, "HITL Review Required")
	assert.Contains(t, gateway.previewText, "a draft post")
	assert.Contains(t, gateway.previewText, "Memory Used:")
	assert.Contains(t, gateway.previewText, "be funnier (Score: 0.50)")

	require.Len(t, gateway.previewButtons, 2)
	assert.Equal(t, Button{Label: "Accept", Data: "yes_post-1"}, gateway.previewButtons[0])
	assert.Equal(t, Button{Label: "Reject & Teach", Data: "teach_post-1"}, gateway.previewButtons[1])
}

func TestAwaitRejectOnlyButtons(t *testing.T) {
	gateway := &fakeGateway{script: []pollStep{
		{events: []Event{{ID: 1, ButtonData: "no_kw-7"}}},
	}}

	_, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID: "kw-7",
		Preview:    "keyword: valuation",
	})
	require.NoError(t, err)

	require.Len(t, gateway.previewButtons, 2)
	assert.Equal(t, Button{Label: "Reject", Data: "no_kw-7"}, gateway.previewButtons[1])
}

func TestAwaitSendPreviewFailure(t *testing.T) {
	gateway := &fakeGateway{previewErr: errors.New("chat unreachable")}

	_, err := newTestProtocol(gateway).Await(context.Background(), Request{
		CallbackID: "post-1",
		Preview:    "a draft post",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send preview")
}

func TestAwaitContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gateway := &fakeGateway{}

	_, err := newTestProtocol(gateway).Await(ctx, Request{
		CallbackID: "post-1",
		Preview:    "a draft post",
	})

	require.ErrorIs(t, err, context.Canceled)
}
