package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"chronicle.ai/internal/protocol"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		slot       = flag.Int("slot", 0, "save slot")
		name       = flag.String("name", "bot", "save name for a new game")
		newGame    = flag.Bool("new", false, "start a new game even if the slot has a save")
		resumeOnly = flag.Bool("resume", false, "fail instead of starting a game in an empty slot")
		script     = flag.String("script", "", "file with one intent per line (default: stdin)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Slot:            *slot,
		SaveName:        *name,
		NewGame:         *newGame,
		ResumeOnly:      *resumeOnly,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	if !await(conn, logger, "") {
		return
	}

	var in io.Reader = os.Stdin
	if strings.TrimSpace(*script) != "" {
		f, err := os.Open(*script)
		if err != nil {
			logger.Fatalf("open script: %v", err)
		}
		defer f.Close()
		in = f
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	sc := bufio.NewScanner(in)
	n := 0
	for sc.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		n++
		id := fmt.Sprintf("I_%d", n)
		intent := protocol.IntentMsg{Type: protocol.TypeIntent, ProtocolVersion: protocol.Version, ID: id, Text: text}
		if err := conn.WriteJSON(intent); err != nil {
			logger.Printf("send INTENT: %v", err)
			return
		}
		if !await(conn, logger, id) {
			return
		}
	}
}

// await reads until the reply to intentID (or the WELCOME when intentID is
// empty) arrives. It reports false when the session cannot continue.
func await(conn *websocket.Conn, logger *log.Logger, intentID string) bool {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return false
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME slot=%d player=%s resumed=%v turns=%d year=%d", w.Slot, w.PlayerID, w.Resumed, w.TotalTurns, w.World.Time.Year)
			if w.GameOver {
				logger.Printf("this save has ended")
				return false
			}
			if intentID == "" {
				return true
			}

		case protocol.TypeNarrative:
			var nm protocol.NarrativeMsg
			if err := json.Unmarshal(msg, &nm); err != nil {
				continue
			}
			if nm.IntentID != intentID {
				continue
			}
			t := nm.World.Time
			switch {
			case nm.Blocked:
				logger.Printf("[%d] blocked: %s", nm.Round, nm.BlockReason)
			default:
				logger.Printf("[%d] %d-%02d-%02d mood=%s saved=%v\n%s", nm.Round, t.Year, t.Month, t.Day, nm.Mood, nm.Saved, nm.Narrative)
			}
			if nm.GameOver {
				logger.Printf("game over: %s", nm.GameOverReason)
				return false
			}
			return true

		case protocol.TypeError:
			var em protocol.ErrorMsg
			if err := json.Unmarshal(msg, &em); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", em.Code, em.Message)
			// E_PERSIST trails a narrative that was already delivered.
			if em.Code == protocol.ErrPersist {
				continue
			}
			return intentID != "" && em.Code != protocol.ErrGameOver
		}
	}
}
