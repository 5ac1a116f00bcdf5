package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/room4-2/DineCall/bot"
	"github.com/room4-2/DineCall/calls"
	"github.com/room4-2/DineCall/callstate"
	"github.com/room4-2/DineCall/config"
	"github.com/room4-2/DineCall/conversation"
	"github.com/room4-2/DineCall/gemini"
	"github.com/room4-2/DineCall/intent"
	"github.com/room4-2/DineCall/locations"
	"github.com/room4-2/DineCall/notify"
	"github.com/room4-2/DineCall/places"
	"github.com/room4-2/DineCall/server"
	"github.com/room4-2/DineCall/splitbill"
	"github.com/room4-2/DineCall/telephony"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Redis is best-effort; the store runs memory-only without it
	rdb := callstate.DialRedis(cfg.RedisURL, cfg.RedisPassword)
	if rdb == nil {
		log.Println("⚠️ Redis unreachable, running with in-memory call state only")
	}
	store := callstate.NewStore(rdb, cfg.CallStateTTL)

	model, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to create model client: %v", err)
	}

	engine := conversation.NewEngine(model, store, cfg.Voice, cfg.GatherURL(), cfg.CallTurnTimeout)
	dialer := telephony.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)

	controller := calls.NewController(store, engine, dialer, nil, cfg.StatusURL(), cfg.MaxActiveCalls)

	// Chat side is optional: without a Discord token the webhook server still
	// runs and calls can be driven by other frontends.
	var chatBot *bot.Bot
	if cfg.DiscordToken != "" {
		extractor := intent.NewExtractor(model)
		splitter := splitbill.NewSplitter(model)

		var searcher bot.PlaceSearcher
		if cfg.GoogleMapsAPIKey != "" {
			s, err := places.NewSearcher(cfg.GoogleMapsAPIKey, model)
			if err != nil {
				log.Fatalf("Failed to create place searcher: %v", err)
			}
			searcher = s
		} else {
			log.Println("⚠️ GOOGLE_MAPS_API_KEY not set, restaurant search disabled")
		}

		locs := locations.NewStore(cfg.LocationFile)
		chatBot, err = bot.New(cfg.DiscordToken, extractor, controller, splitter, searcher, locs)
		if err != nil {
			log.Fatalf("Failed to create Discord bot: %v", err)
		}
		controller.SetNotifier(notify.NewDiscord(chatBot.Session()))
	} else {
		log.Println("⚠️ DISCORD_TOKEN not set, chat loop disabled")
	}
	srv := server.NewServer(cfg.Port, store, engine, controller, cfg.Voice)

	if chatBot != nil {
		if err := chatBot.Start(); err != nil {
			log.Fatalf("Discord bot error: %v", err)
		}
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		if chatBot != nil {
			if err := chatBot.Stop(); err != nil {
				log.Printf("Discord shutdown error: %v", err)
			}
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
