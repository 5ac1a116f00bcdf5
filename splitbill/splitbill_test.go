package splitbill

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	transcript   string
	imageErr     error
	breakdown    string
	breakdownErr error
	answer       string
	lastTextUser string
}

func (f *fakeGenerator) DescribeImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	return f.transcript, f.imageErr
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	return f.breakdown, f.breakdownErr
}

func (f *fakeGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.lastTextUser = user
	return f.answer, nil
}

func TestComputeShares(t *testing.T) {
	b := breakdown{
		People: map[string][]lineItem{
			"Sherry": {{Item: "Burger", Price: 11.25}, {Item: "Cheese", Price: 19.75}},
			"Rishi":  {{Item: "Burger", Price: 11.25}, {Item: "Egg Roll", Price: 8.9}},
		},
		Tax:   10.3,
		Tip:   11.0,
		Total: 72.45,
	}

	shares := computeShares(b)
	assert.InDelta(t, 43.91, shares["Sherry"], 0.001)
	assert.InDelta(t, 28.54, shares["Rishi"], 0.001)
}

func TestComputeSharesRoundingDriftLandsOnLargest(t *testing.T) {
	b := breakdown{
		People: map[string][]lineItem{
			"Alice": {{Item: "Pasta", Price: 10.00}},
			"Bob":   {{Item: "Pizza", Price: 10.00}},
		},
		Tax:   0.01,
		Total: 20.01,
	}

	shares := computeShares(b)
	var sum float64
	for _, v := range shares {
		sum += v
	}
	assert.InDelta(t, 20.01, sum, 0.001)
}

func TestComputeSharesNoTotals(t *testing.T) {
	b := breakdown{
		People: map[string][]lineItem{
			"You": {{Item: "Fish and Chips", Price: 18.50}},
		},
	}
	shares := computeShares(b)
	assert.InDelta(t, 18.50, shares["You"], 0.001)
}

func TestSplit(t *testing.T) {
	gen := &fakeGenerator{
		transcript: "Burger 11.25\nTax 1.00\nTotal 12.25",
		breakdown:  `{"people":{"You":[{"item":"Burger","price":11.25}]},"tax":1.0,"tip":0,"total":12.25}`,
		answer:     "**You** pay **$12.25** for Burger and tax.",
	}
	s := NewSplitter(gen)

	answer, err := s.Split(context.Background(), "I got everything", "image/jpeg", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "**You** pay **$12.25** for Burger and tax.", answer)
	assert.Contains(t, gen.lastTextUser, "You: $12.25")
}

func TestSplitMalformedBreakdown(t *testing.T) {
	gen := &fakeGenerator{breakdown: "not json"}
	_, err := NewSplitter(gen).Split(context.Background(), "split it", "image/png", []byte("img"))
	require.ErrorIs(t, err, ErrMalformedBreakdown)
}

func TestSplitTranscriptionFailure(t *testing.T) {
	gen := &fakeGenerator{imageErr: errors.New("vision unavailable")}
	_, err := NewSplitter(gen).Split(context.Background(), "split it", "image/png", []byte("img"))
	require.Error(t, err)
}
