package main

import (
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
)

// Connects to the claim feed and prints events. Usage:
//
//	CLAIMS_WS_URL=ws://localhost:8080/ws/claims TOKEN=... go run ./cmd/claims_smoke
func main() {
	base := os.Getenv("CLAIMS_WS_URL")
	if base == "" {
		base = "ws://localhost:8080/ws/claims"
	}
	token := os.Getenv("TOKEN")
	if token == "" {
		log.Fatal("TOKEN not set")
	}

	u, err := url.Parse(base)
	if err != nil {
		log.Fatalf("bad url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	log.Printf("connected to %s\n", u.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v\n", err)
				return
			}
			log.Printf("event: %s\n", message)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
