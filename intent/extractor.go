// Package intent turns free-form chat text into a validated reservation
// request via a structured LLM extraction call.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/room4-2/DineCall/phone"
)

// Request is a validated, immutable reservation intent.
type Request struct {
	RestaurantPhone string // E.164
	PartySize       int
	ReservationTime time.Time
	CustomerName    string
	SpecialRequests string
}

// IncompleteError carries the model's conversational explanation of what is
// missing; it is surfaced verbatim to the chat user.
type IncompleteError struct {
	Message       string
	MissingFields []string
}

func (e *IncompleteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "please provide all the required information for the reservation"
}

// ErrMalformedExtraction means the model's structured output could not be
// decoded or validated.
var ErrMalformedExtraction = errors.New("could not process the extraction result")

// Generator is the text-generation call the extractor depends on. The
// provider constrains the response body to JSON.
type Generator interface {
	GenerateJSON(ctx context.Context, system, user string) (string, error)
}

// Extractor delegates parsing to the generator and validates the result.
type Extractor struct {
	gen Generator
}

// NewExtractor creates an extractor over the given generator.
func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Wire shape of the structured extraction result.
type extraction struct {
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields"`
	ErrorMessage  string   `json:"error_message"`
	Details       struct {
		PhoneNumber     string `json:"phone_number"`
		PartySize       int    `json:"party_size"`
		ReservationTime string `json:"reservation_time"`
		CustomerName    string `json:"customer_name"`
		SpecialRequests string `json:"special_requests"`
	} `json:"details"`
}

// Extract parses a reservation request out of message. now is the reference
// the model resolves relative dates against; it is injected for testability.
func (e *Extractor) Extract(ctx context.Context, message string, now time.Time) (*Request, error) {
	raw, err := e.gen.GenerateJSON(ctx, extractionPrompt(now), "Message: "+message+"\nOutput:")
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	var result extraction
	if err := sonic.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExtraction, err)
	}

	if !result.Complete {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "Please provide all the required information for the reservation."
		}
		return nil, &IncompleteError{Message: msg, MissingFields: result.MissingFields}
	}

	normalized, err := phone.Normalize(result.Details.PhoneNumber)
	if err != nil {
		return nil, err
	}

	when, err := parseReservationTime(result.Details.ReservationTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExtraction, err)
	}

	if result.Details.PartySize <= 0 {
		return nil, fmt.Errorf("%w: party size must be positive", ErrMalformedExtraction)
	}
	if strings.TrimSpace(result.Details.CustomerName) == "" {
		return nil, fmt.Errorf("%w: missing customer name", ErrMalformedExtraction)
	}

	// The model is told to enforce futurity but is never trusted to.
	if !when.After(now) {
		return nil, &IncompleteError{
			Message:       "The reservation time has to be in the future. What time would you like?",
			MissingFields: []string{"reservation_time"},
		}
	}

	return &Request{
		RestaurantPhone: normalized,
		PartySize:       result.Details.PartySize,
		ReservationTime: when,
		CustomerName:    strings.TrimSpace(result.Details.CustomerName),
		SpecialRequests: result.Details.SpecialRequests,
	}, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseReservationTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable reservation time %q", s)
}
