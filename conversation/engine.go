// Package conversation drives the spoken turns of an outbound reservation
// call: one generation call per turn, wrapped into a call-control document
// that speaks the line and collects the counterparty's reply.
package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/room4-2/DineCall/callstate"
	"github.com/room4-2/DineCall/twiml"
)

// apologyLine is spoken whenever a turn's generation call fails; the call is
// never allowed to end abruptly on a single bad turn.
const apologyLine = "I apologize for the technical difficulty. Could you please repeat that?"

// Generator is the bounded text-generation call the engine depends on.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Engine produces the assistant's next spoken line per call turn.
type Engine struct {
	gen       Generator
	store     *callstate.Store
	voice     string
	gatherURL string
	timeout   time.Duration
}

// NewEngine creates a turn engine. gatherURL is the absolute turn-handling
// webhook every document points back at.
func NewEngine(gen Generator, store *callstate.Store, voice, gatherURL string, timeout time.Duration) *Engine {
	return &Engine{
		gen:       gen,
		store:     store,
		voice:     voice,
		gatherURL: gatherURL,
		timeout:   timeout,
	}
}

// OpeningTurn composes the greeting for a call that has not been placed yet.
// The assistant line is appended to c's transcript in place; the context is
// registered with the store by the caller once the vendor issues a call SID.
func (e *Engine) OpeningTurn(ctx context.Context, c *callstate.Context) (*twiml.Response, error) {
	line, err := e.speak(ctx, c, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compose opening line: %w", err)
	}
	c.Transcript = append(c.Transcript, callstate.TranscriptLine{
		Speaker: callstate.SpeakerAssistant,
		Text:    line,
		At:      time.Now(),
	})
	return twiml.SpeakAndListen(line, e.voice, e.gatherURL), nil
}

// NextTurn handles one mid-call turn: record what the counterparty said,
// generate the reply, persist it, and return the call-control document. A
// failed generation call yields the apology fallback with a fresh
// speech-collection window instead of propagating.
func (e *Engine) NextTurn(ctx context.Context, callSID, utterance string) *twiml.Response {
	if strings.TrimSpace(utterance) != "" {
		if err := e.store.AppendTranscript(ctx, callSID, callstate.SpeakerCounterparty, utterance); err != nil {
			log.Printf("⚠️ [%s] failed to record counterparty line: %v", callSID, err)
		}
	}

	c, err := e.store.Get(callSID)
	if err != nil {
		log.Printf("⚠️ [%s] turn for unknown call: %v", callSID, err)
		return e.fallback()
	}

	line, err := e.speak(ctx, &c, false)
	if err != nil {
		log.Printf("❌ [%s] turn generation failed: %v", callSID, err)
		return e.fallback()
	}

	if err := e.store.AppendTranscript(ctx, callSID, callstate.SpeakerAssistant, line); err != nil {
		log.Printf("⚠️ [%s] failed to record assistant line: %v", callSID, err)
	}

	return twiml.SpeakAndListen(line, e.voice, e.gatherURL)
}

func (e *Engine) speak(ctx context.Context, c *callstate.Context, initial bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	user := "Start the conversation with your initial greeting."
	if !initial {
		user = formatTranscript(c.Transcript)
	}

	line, err := e.gen.GenerateText(ctx, reservationPrompt(c, initial), user)
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty assistant line")
	}
	return line, nil
}

func (e *Engine) fallback() *twiml.Response {
	return twiml.SpeakAndListen(apologyLine, e.voice, e.gatherURL)
}

// Outcome is the post-call verdict produced from the transcript.
type Outcome struct {
	Confirmed bool
	Summary   string
}

// AnalyzeOutcome summarizes a finished call's transcript into a
// confirmed/unconfirmed verdict.
func (e *Engine) AnalyzeOutcome(ctx context.Context, c callstate.Context) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if len(c.Transcript) == 0 {
		return Outcome{Summary: "The call ended before any conversation took place."}, nil
	}

	text, err := e.gen.GenerateText(ctx, outcomePrompt, formatTranscript(c.Transcript))
	if err != nil {
		return Outcome{}, fmt.Errorf("outcome analysis failed: %w", err)
	}

	verdict, summary, _ := strings.Cut(strings.TrimSpace(text), "\n")
	verdict = strings.ToUpper(strings.TrimSpace(verdict))
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = "The call has ended."
	}

	confirmed := strings.HasPrefix(verdict, "CONFIRMED")
	return Outcome{Confirmed: confirmed, Summary: summary}, nil
}
