// Package bot runs the Discord message loop that fronts the reservation
// caller, the bill splitter, and restaurant search.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/room4-2/DineCall/calls"
	"github.com/room4-2/DineCall/intent"
	"github.com/room4-2/DineCall/locations"
	"github.com/room4-2/DineCall/notify"
	"github.com/room4-2/DineCall/phone"
)

const reservationHelp = "I couldn't understand the reservation details. Please use this format:\n" +
	"Make a reservation at +1234567890 for 4 people tomorrow at 7:30 PM under John Doe"

// Caller starts reservation calls.
type Caller interface {
	StartCall(ctx context.Context, req *intent.Request, channelID string) (string, error)
}

// ReservationParser extracts a reservation request from free text.
type ReservationParser interface {
	Extract(ctx context.Context, message string, now time.Time) (*intent.Request, error)
}

// BillSplitter splits a receipt image per the user's instructions.
type BillSplitter interface {
	Split(ctx context.Context, instructions, mimeType string, image []byte) (string, error)
}

// PlaceSearcher finds restaurants near an optional location.
type PlaceSearcher interface {
	Search(ctx context.Context, query, location string) (string, error)
}

// Bot routes Discord messages to the right feature. Searcher and splitter may
// be nil when their backing services are not configured.
type Bot struct {
	session   *discordgo.Session
	parser    ReservationParser
	caller    Caller
	splitter  BillSplitter
	searcher  PlaceSearcher
	locations *locations.Store

	// fetch downloads an attachment; swapped in tests.
	fetch func(ctx context.Context, url string) ([]byte, error)
}

// New creates a bot over an authenticated Discord token.
func New(token string, parser ReservationParser, caller Caller, splitter BillSplitter, searcher PlaceSearcher, locs *locations.Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	b := &Bot{
		session:   session,
		parser:    parser,
		caller:    caller,
		splitter:  splitter,
		searcher:  searcher,
		locations: locs,
		fetch:     fetchURL,
	}
	session.AddHandler(b.onMessage)
	return b, nil
}

// Session exposes the underlying Discord session so the notifier can share
// the same connection.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}
	log.Println("✅ Discord bot connected")
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || strings.HasPrefix(m.Content, "!") {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply := b.handle(ctx, m.ChannelID, m.Author.ID, m.Content, m.Attachments)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, notify.Truncate(reply), m.Reference()); err != nil {
		log.Printf("❌ Failed to reply in channel %s: %v", m.ChannelID, err)
	}
}

// handle routes one message and returns the reply text, or "" to stay silent.
func (b *Bot) handle(ctx context.Context, channelID, authorID, content string, attachments []*discordgo.MessageAttachment) string {
	lower := strings.ToLower(content)

	if img := firstImage(attachments); img != nil && b.splitter != nil {
		return b.splitBill(ctx, content, img)
	}

	if strings.Contains(lower, "make a reservation") {
		return b.reserve(ctx, channelID, content)
	}

	if prefix := "my location is "; strings.HasPrefix(lower, prefix) {
		loc := strings.TrimSpace(content[len(prefix):])
		if err := b.locations.Set(authorID, loc); err != nil {
			log.Printf("❌ Failed to store location for %s: %v", authorID, err)
			return "I couldn't save your location, please try again."
		}
		return "Location set to: " + loc
	}

	if b.searcher != nil && (strings.Contains(lower, "find") || strings.Contains(lower, "search") || strings.Contains(lower, "recommend")) {
		location, _ := b.locations.Get(authorID)
		out, err := b.searcher.Search(ctx, content, location)
		if err != nil {
			log.Printf("❌ Restaurant search failed: %v", err)
			return "❌ Something went wrong searching for restaurants. Please try again."
		}
		return out
	}

	return ""
}

func (b *Bot) reserve(ctx context.Context, channelID, content string) string {
	req, err := b.parser.Extract(ctx, content, time.Now())
	if err != nil {
		var incomplete *intent.IncompleteError
		switch {
		case errors.As(err, &incomplete):
			return incomplete.Message
		case errors.Is(err, phone.ErrInvalidNumber):
			return err.Error()
		case errors.Is(err, intent.ErrMalformedExtraction):
			return reservationHelp
		default:
			log.Printf("❌ Reservation extraction failed: %v", err)
			return "❌ An unexpected error occurred while reading your request. Please try again."
		}
	}

	summary, err := b.caller.StartCall(ctx, req, channelID)
	if err != nil {
		if errors.Is(err, calls.ErrTooManyCalls) {
			return "⚠️ " + err.Error()
		}
		log.Printf("❌ Failed to start reservation call: %v", err)
		return fmt.Sprintf("❌ An unexpected error occurred: %v", err)
	}
	return summary
}

func (b *Bot) splitBill(ctx context.Context, content string, img *discordgo.MessageAttachment) string {
	data, err := b.fetch(ctx, img.URL)
	if err != nil {
		log.Printf("❌ Failed to download receipt image: %v", err)
		return "❌ I couldn't download that image. Please try again."
	}

	out, err := b.splitter.Split(ctx, content, img.ContentType, data)
	if err != nil {
		log.Printf("❌ Bill split failed: %v", err)
		return "❌ I couldn't split that bill. Please make sure the image is a readable receipt."
	}
	return out
}

func firstImage(attachments []*discordgo.MessageAttachment) *discordgo.MessageAttachment {
	for _, a := range attachments {
		if strings.HasPrefix(a.ContentType, "image") {
			return a
		}
	}
	return nil
}

func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}
