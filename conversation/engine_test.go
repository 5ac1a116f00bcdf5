package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/DineCall/callstate"
)

type fakeGenerator struct {
	response string
	err      error
	system   string
	user     string
}

func (f *fakeGenerator) GenerateText(_ context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user
	return f.response, f.err
}

func newTestEngine(gen Generator) (*Engine, *callstate.Store) {
	store := callstate.NewStore(nil, time.Hour)
	return NewEngine(gen, store, "woman", "https://example.com/gather", 5*time.Second), store
}

func reservation() *callstate.Context {
	return &callstate.Context{
		RestaurantPhone: "+11234567890",
		PartySize:       4,
		ReservationTime: time.Date(2026, 9, 1, 19, 30, 0, 0, time.UTC),
		CustomerName:    "John Doe",
		SpecialRequests: "window seat",
	}
}

func TestOpeningTurn(t *testing.T) {
	gen := &fakeGenerator{response: "Hello, I'm an AI assistant calling to book a table for four."}
	engine, _ := newTestEngine(gen)

	c := reservation()
	doc, err := engine.OpeningTurn(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, doc.HasListenStep())
	assert.Equal(t, gen.response, doc.Gather.Say.Text)

	require.Len(t, c.Transcript, 1)
	assert.Equal(t, callstate.SpeakerAssistant, c.Transcript[0].Speaker)

	assert.Contains(t, gen.system, "4 people")
	assert.Contains(t, gen.system, "John Doe")
	assert.Contains(t, gen.system, "window seat")
	assert.Contains(t, gen.system, "initial greeting")
	assert.Equal(t, "Start the conversation with your initial greeting.", gen.user)
}

func TestOpeningTurnPropagatesFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	engine, _ := newTestEngine(gen)

	_, err := engine.OpeningTurn(context.Background(), reservation())
	assert.Error(t, err)
}

func TestNextTurnAppendsBothSpeakers(t *testing.T) {
	gen := &fakeGenerator{response: "Wonderful, see you at seven thirty."}
	engine, store := newTestEngine(gen)

	ctx := context.Background()
	require.NoError(t, store.Register(ctx, "CA1", reservation()))
	require.NoError(t, store.AppendTranscript(ctx, "CA1", callstate.SpeakerAssistant, "Hello, calling about a reservation."))

	doc := engine.NextTurn(ctx, "CA1", "Yes, that works for us.")
	require.True(t, doc.HasListenStep())
	assert.Equal(t, "Wonderful, see you at seven thirty.", doc.Gather.Say.Text)

	got, err := store.Get("CA1")
	require.NoError(t, err)
	require.Len(t, got.Transcript, 3)
	assert.Equal(t, callstate.SpeakerCounterparty, got.Transcript[1].Speaker)
	assert.Equal(t, "Yes, that works for us.", got.Transcript[1].Text)
	assert.Equal(t, callstate.SpeakerAssistant, got.Transcript[2].Speaker)

	// The transcript so far is what the model sees.
	assert.Contains(t, gen.user, "AI Assistant: Hello, calling about a reservation.")
	assert.Contains(t, gen.user, "Restaurant: Yes, that works for us.")
}

func TestNextTurnFallbackOnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}
	engine, store := newTestEngine(gen)

	ctx := context.Background()
	require.NoError(t, store.Register(ctx, "CA1", reservation()))

	doc := engine.NextTurn(ctx, "CA1", "Could you repeat the party size?")
	require.True(t, doc.HasListenStep(), "a failed turn must still collect speech")
	assert.Equal(t, apologyLine, doc.Gather.Say.Text)
}

func TestNextTurnFallbackOnEmptyResponse(t *testing.T) {
	gen := &fakeGenerator{response: "   "}
	engine, store := newTestEngine(gen)

	ctx := context.Background()
	require.NoError(t, store.Register(ctx, "CA1", reservation()))

	doc := engine.NextTurn(ctx, "CA1", "Hello?")
	require.True(t, doc.HasListenStep())
	assert.Equal(t, apologyLine, doc.Gather.Say.Text)
}

func TestAnalyzeOutcomeConfirmed(t *testing.T) {
	gen := &fakeGenerator{response: "CONFIRMED\nThe restaurant confirmed the table for 7:30 PM."}
	engine, _ := newTestEngine(gen)

	c := *reservation()
	c.Transcript = []callstate.TranscriptLine{
		{Speaker: callstate.SpeakerAssistant, Text: "Hello"},
		{Speaker: callstate.SpeakerCounterparty, Text: "Sure, 7:30 works"},
	}

	outcome, err := engine.AnalyzeOutcome(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, outcome.Confirmed)
	assert.Equal(t, "The restaurant confirmed the table for 7:30 PM.", outcome.Summary)
}

func TestAnalyzeOutcomeUnconfirmed(t *testing.T) {
	gen := &fakeGenerator{response: "UNCONFIRMED\nThey were fully booked."}
	engine, _ := newTestEngine(gen)

	c := *reservation()
	c.Transcript = []callstate.TranscriptLine{{Speaker: callstate.SpeakerAssistant, Text: "Hello"}}

	outcome, err := engine.AnalyzeOutcome(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, outcome.Confirmed, "UNCONFIRMED must not read as confirmed")
}

func TestAnalyzeOutcomeEmptyTranscript(t *testing.T) {
	gen := &fakeGenerator{response: "should not be called"}
	engine, _ := newTestEngine(gen)

	outcome, err := engine.AnalyzeOutcome(context.Background(), *reservation())
	require.NoError(t, err)
	assert.False(t, outcome.Confirmed)
	assert.NotEmpty(t, outcome.Summary)
}
