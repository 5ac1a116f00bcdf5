// Package places searches for restaurants through the Google Maps Platform
// and formats chat-ready recommendation blocks.
package places

import (
	"context"
	"fmt"
	"log"
	"strings"

	"googlemaps.github.io/maps"
)

const reviewSummaryPrompt = `You are a helpful assistant specializing in summarizing restaurant reviews.
Provide a very concise 2-3 sentence summary that captures:
1. Overall sentiment and most mentioned positives
2. Any notable criticisms or areas for improvement
3. 1-2 most recommended dishes (if mentioned)

Keep your summary brief, direct, and informative.`

const (
	maxResults       = 3
	maxReviews       = 5
	searchRadiusMtrs = 5000
)

// Summarizer condenses raw review text into a short blurb.
type Summarizer interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type mapsAPI interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

// Searcher runs restaurant searches, optionally biased near a free-text
// location.
type Searcher struct {
	api mapsAPI
	sum Summarizer
}

// NewSearcher creates a searcher over the Maps Platform.
func NewSearcher(apiKey string, sum Summarizer) (*Searcher, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Searcher{api: client, sum: sum}, nil
}

// Search finds up to three restaurants matching query, fetches their details,
// and returns a formatted recommendation block with a review summary per
// place.
func (s *Searcher) Search(ctx context.Context, query, location string) (string, error) {
	req := &maps.TextSearchRequest{
		Query: query,
		Type:  maps.PlaceTypeRestaurant,
	}

	if location != "" {
		geo, err := s.api.Geocode(ctx, &maps.GeocodingRequest{Address: location})
		if err != nil {
			log.Printf("⚠️ Geocoding %q failed, searching unbiased: %v", location, err)
		} else if len(geo) > 0 {
			req.Location = &geo[0].Geometry.Location
			req.Radius = searchRadiusMtrs
		}
	}

	resp, err := s.api.TextSearch(ctx, req)
	if err != nil {
		return "", fmt.Errorf("restaurant search failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return "I couldn't find any restaurants matching your search. Would you like to try a different query or location?", nil
	}

	parts := []string{"Here are my recommendations:"}
	shown := 0
	for _, result := range resp.Results {
		if shown == maxResults {
			break
		}
		if shown > 0 {
			parts = append(parts, "\n"+strings.Repeat("-", 30)+"\n")
		}

		details, err := s.api.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
			PlaceID: result.PlaceID,
			Fields: []maps.PlaceDetailsFieldMask{
				maps.PlaceDetailsFieldMaskName,
				maps.PlaceDetailsFieldMaskRatings,
				maps.PlaceDetailsFieldMaskUserRatingsTotal,
				maps.PlaceDetailsFieldMaskFormattedAddress,
				maps.PlaceDetailsFieldMaskPriceLevel,
				maps.PlaceDetailsFieldMaskReviews,
			},
		})
		if err != nil {
			log.Printf("⚠️ Place details for %s failed: %v", result.PlaceID, err)
			continue
		}

		parts = append(parts, formatPlace(details))
		parts = append(parts, s.summarizeReviews(ctx, details.Reviews))
		shown++
	}

	if shown == 0 {
		return "I couldn't find any restaurants matching your search. Would you like to try a different query or location?", nil
	}

	if len(resp.Results) > shown {
		parts = append(parts, "\nWould you like to see more restaurant recommendations?")
	} else {
		parts = append(parts, "\nThose are all the restaurants I found. Would you like to try a different search?")
	}
	return strings.Join(parts, "\n"), nil
}

func (s *Searcher) summarizeReviews(ctx context.Context, reviews []maps.PlaceReview) string {
	if len(reviews) == 0 {
		return "\nNo reviews available yet."
	}

	var sb strings.Builder
	for i, review := range reviews {
		if i == maxReviews {
			break
		}
		fmt.Fprintf(&sb, "Review %d (Rating: %d/5): %s\n\n", i+1, review.Rating, review.Text)
	}

	summary, err := s.sum.GenerateText(ctx, reviewSummaryPrompt, sb.String())
	if err != nil {
		log.Printf("⚠️ Review summary failed: %v", err)
		return "\nNo review summary available."
	}
	return "\n💬 " + summary
}

func formatPlace(details maps.PlaceDetailsResult) string {
	info := []string{fmt.Sprintf("**%s**", details.Name)}

	var ratingParts []string
	if details.Rating > 0 {
		stars := strings.Repeat("⭐", int(details.Rating))
		ratingParts = append(ratingParts, fmt.Sprintf("%.1f %s (%d reviews)", details.Rating, stars, details.UserRatingsTotal))
	}
	if details.PriceLevel > 0 {
		ratingParts = append(ratingParts, strings.Repeat("💰", details.PriceLevel))
	}
	if len(ratingParts) > 0 {
		info = append(info, strings.Join(ratingParts, " | "))
	}

	if details.FormattedAddress != "" {
		info = append(info, "📍 "+details.FormattedAddress)
	}
	return strings.Join(info, "\n")
}
