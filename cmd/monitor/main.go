// Command monitor attaches to a live call's transcript feed and prints each
// line as it is spoken.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/room4-2/DineCall/callstate"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080", "webhook server base URL")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: monitor [-server ws://host:port] <call-sid>")
	}
	callSID := flag.Arg(0)

	wsURL := *serverURL + "/monitor/" + callSID
	log.Printf("🔌 Connecting to %s...", wsURL)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var line callstate.TranscriptLine
			if err := sonic.Unmarshal(payload, &line); err != nil {
				log.Printf("Parse error: %v", err)
				continue
			}

			prefix := "🤖"
			if line.Speaker == callstate.SpeakerCounterparty {
				prefix = "🍽️"
			}
			fmt.Printf("%s [%s] %s\n", prefix, line.At.Format("15:04:05"), line.Text)
		}
	}()

	select {
	case <-done:
		log.Println("Call ended")
	case <-interrupt:
		log.Println("\n👋 Interrupted, closing...")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
