package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	turnlog "chronicle.ai/internal/persistence/log"
	"chronicle.ai/internal/sim/state"
)

func main() {
	var (
		turnsDir = flag.String("turns", "./data/turns", "turn log dir containing turns-*.jsonl.zst")
		player   = flag.String("player", "", "only replay this player id (optional)")
		savePath = flag.String("save", "", "exported save to check the log against (optional)")
		quiet    = flag.Bool("quiet", false, "do not print each turn")
	)
	flag.Parse()

	files, err := turnlog.TurnFiles(*turnsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list turns:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no turn files found in", *turnsDir)
		os.Exit(1)
	}

	var final *state.SaveData
	if strings.TrimSpace(*savePath) != "" {
		raw, err := os.ReadFile(*savePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read save:", err)
			os.Exit(1)
		}
		final = &state.SaveData{}
		if err := json.Unmarshal(raw, final); err != nil {
			fmt.Fprintln(os.Stderr, "decode save:", err)
			os.Exit(1)
		}
		if *player == "" {
			*player = final.Meta.PlayerID
		}
	}

	chk := newChecker()
	for _, path := range files {
		err := turnlog.ReadTurns(path, func(e turnlog.TurnLogEntry) error {
			if *player != "" && e.PlayerID != *player {
				return nil
			}
			if !*quiet {
				printTurn(e)
			}
			return chk.observe(e)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	if final != nil {
		if err := chk.matches(final); err != nil {
			fmt.Fprintln(os.Stderr, "save mismatch:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: files=%d turns=%d players=%d blocked=%d fallback=%d\n",
		len(files), chk.turns, len(chk.players), chk.blocked, chk.fallback)
}

func printTurn(e turnlog.TurnLogEntry) {
	tag := ""
	switch {
	case e.Blocked:
		tag = " BLOCKED(" + e.BlockReason + ")"
	case e.Fallback:
		tag = " FALLBACK(" + e.Failure + ")"
	case e.GameOver:
		tag = " GAME_OVER"
	}
	fmt.Printf("slot=%d player=%s round=%d %d-%02d-%02d%s intent=%q\n",
		e.Slot, e.PlayerID, e.Round, e.Time.Year, e.Time.Month, e.Time.Day, tag, e.Intent)
	if len(e.Events) > 0 {
		fmt.Printf("  events=%v\n", e.Events)
	}
}
