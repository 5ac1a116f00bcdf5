// Command extract runs one reservation extraction against the live model,
// for prompt tuning without placing a call.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/room4-2/DineCall/gemini"
	"github.com/room4-2/DineCall/intent"
)

func main() {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}
	if len(os.Args) < 2 {
		log.Fatal("usage: extract <message...>")
	}
	message := strings.Join(os.Args[1:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	req, err := intent.NewExtractor(client).Extract(ctx, message, time.Now())
	if err != nil {
		var incomplete *intent.IncompleteError
		if errors.As(err, &incomplete) {
			log.Printf("⚠️ Incomplete (missing %v): %s", incomplete.MissingFields, incomplete.Message)
			return
		}
		log.Fatalf("❌ Extraction failed: %v", err)
	}

	log.Printf("✅ Phone:            %s", req.RestaurantPhone)
	log.Printf("✅ Party size:       %d", req.PartySize)
	log.Printf("✅ Reservation time: %s", req.ReservationTime.Format("2006-01-02 15:04"))
	log.Printf("✅ Name:             %s", req.CustomerName)
	if req.SpecialRequests != "" {
		log.Printf("✅ Special requests: %s", req.SpecialRequests)
	}
}
