// Package splitbill turns a receipt image plus free-text instructions into a
// per-person breakdown of who owes what.
package splitbill

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrMalformedBreakdown means the model's itemized breakdown could not be
// decoded.
var ErrMalformedBreakdown = errors.New("could not parse the bill breakdown")

// Generator is the model surface the splitter needs: one vision pass to
// transcribe the receipt, one structured pass to itemize it, and one text
// pass to present the result.
type Generator interface {
	DescribeImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
	GenerateJSON(ctx context.Context, system, user string) (string, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Splitter splits restaurant bills. Share arithmetic runs locally; the model
// only itemizes and formats.
type Splitter struct {
	gen Generator
}

// NewSplitter creates a splitter over the given generator.
func NewSplitter(gen Generator) *Splitter {
	return &Splitter{gen: gen}
}

type lineItem struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}

type breakdown struct {
	People map[string][]lineItem `json:"people"`
	Tax    float64               `json:"tax"`
	Tip    float64               `json:"tip"`
	Total  float64               `json:"total"`
}

// Split transcribes the receipt image, asks the model to itemize it per the
// instructions, recomputes each person's share locally, and returns a
// chat-ready summary.
func (s *Splitter) Split(ctx context.Context, instructions, mimeType string, image []byte) (string, error) {
	transcript, err := s.gen.DescribeImage(ctx, transcribePrompt, mimeType, image)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe the receipt: %w", err)
	}

	raw, err := s.gen.GenerateJSON(ctx, breakdownInstructions,
		"Instructions: "+instructions+"\nBill transcription: "+transcript)
	if err != nil {
		return "", fmt.Errorf("failed to itemize the bill: %w", err)
	}

	var b breakdown
	if err := sonic.Unmarshal([]byte(raw), &b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedBreakdown, err)
	}
	if len(b.People) == 0 {
		return "", fmt.Errorf("%w: no people in the breakdown", ErrMalformedBreakdown)
	}

	shares := computeShares(b)

	answer, err := s.gen.GenerateText(ctx, presentationInstructions,
		"Breakdown:\n"+raw+"\nSplit:\n"+formatShares(shares))
	if err != nil {
		return "", fmt.Errorf("failed to format the split: %w", err)
	}
	return answer, nil
}

// computeShares assigns each person their items plus a proportional share of
// tax and tip. Any rounding drift against the bill's reported total lands on
// the largest share.
func computeShares(b breakdown) map[string]float64 {
	subtotals := make(map[string]float64, len(b.People))
	var overall float64
	for name, items := range b.People {
		var personTotal float64
		for _, it := range items {
			personTotal += it.Price
		}
		subtotals[name] = personTotal
		overall += personTotal
	}

	shares := make(map[string]float64, len(b.People))
	for name, subtotal := range subtotals {
		var ratio float64
		if overall > 0 {
			ratio = subtotal / overall
		}
		shares[name] = round2(subtotal + b.Tax*ratio + b.Tip*ratio)
	}

	if b.Total > 0 {
		var computed float64
		for _, v := range shares {
			computed += v
		}
		diff := round2(b.Total - round2(computed))
		if math.Abs(diff) >= 0.01 {
			largest := largestShare(shares)
			shares[largest] = round2(shares[largest] + diff)
		}
	}
	return shares
}

func largestShare(shares map[string]float64) string {
	var best string
	bestVal := math.Inf(-1)
	for name, v := range shares {
		if v > bestVal || (v == bestVal && name < best) {
			best, bestVal = name, v
		}
	}
	return best
}

func formatShares(shares map[string]float64) string {
	names := make([]string, 0, len(shares))
	for name := range shares {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: $%.2f\n", name, shares[name])
	}
	return sb.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
