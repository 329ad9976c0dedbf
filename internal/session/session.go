// Package session runs the turn pipeline for one player: safety screen,
// snapshot, hard constraints, generator, effects, persistence and the turn
// log.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chronicle.ai/internal/feedback"
	"chronicle.ai/internal/generator"
	"chronicle.ai/internal/persistence/archive"
	turnlog "chronicle.ai/internal/persistence/log"
	"chronicle.ai/internal/persistence/save"
	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/catalogs"
	"chronicle.ai/internal/sim/constraints"
	"chronicle.ai/internal/sim/effects"
	"chronicle.ai/internal/sim/registry"
	"chronicle.ai/internal/sim/snapshot"
	"chronicle.ai/internal/sim/state"
	"chronicle.ai/internal/sim/tuning"
)

var (
	ErrTurnInFlight = errors.New("a turn is already in flight")
	ErrGameOver     = errors.New("game is over")
	ErrEmptyIntent  = errors.New("empty intent")
)

// PlayerLinePrefix marks the player's own lines in dialogue history.
const PlayerLinePrefix = "玩家："

// Adjudicator is the generator collaborator.
type Adjudicator interface {
	Adjudicate(ctx context.Context, p protocol.Payload) (*protocol.GeneratorResponse, error)
}

// Offsite takes files for background upload under an object key.
type Offsite interface {
	Enqueue(key, localPath string)
}

type TurnWriter interface {
	WriteTurn(e turnlog.TurnLogEntry) error
}

// Deps are shared by every session a server opens.
type Deps struct {
	Registry  *registry.Registry
	Saves     *save.Manager
	Tuning    tuning.Tuning
	Timeline  catalogs.TimelineCatalog
	Screener  *feedback.Screener
	Generator Adjudicator
	TurnLog   TurnWriter

	// Slots is the claim table shared by transports. Nil means unshared.
	Slots *Slots

	// ArchiveDir receives finished saves. Empty disables archiving.
	ArchiveDir string
	// Offsite copies each new archive elsewhere. Optional.
	Offsite Offsite

	Logger *log.Logger
	Now    func() time.Time
}

type Session struct {
	deps     Deps
	logger   *log.Logger
	now      func() time.Time
	builder  *snapshot.Builder
	engine   *constraints.Engine
	applier  effects.Applier
	recorder *feedback.Recorder

	mu       sync.Mutex
	inFlight bool
	over     bool
	view     View

	// sd is only touched by the goroutine holding the in-flight flag.
	sd *state.SaveData
}

// View is a read-only summary safe to hand to other goroutines.
type View struct {
	Slot       int
	PlayerID   string
	SaveName   string
	TotalTurns int
	World      state.WorldState
	GameOver   bool
}

type Outcome struct {
	Round          int
	Narrative      string
	Effects        []string
	Blocked        bool
	BlockReason    string
	Fallback       bool
	Mood           string
	GameOver       bool
	GameOverReason string
	World          state.WorldState
	Saved          bool
}

// Open resumes slot, or starts a new game there when newGame is set or the
// slot is empty or unreadable. resumed reports which happened.
func Open(deps Deps, slot int, name string, newGame bool) (s *Session, resumed bool, err error) {
	if deps.Saves == nil || deps.Generator == nil {
		return nil, false, fmt.Errorf("session needs a save manager and a generator")
	}
	if slot < 0 {
		return nil, false, fmt.Errorf("invalid slot %d", slot)
	}
	if deps.Registry == nil {
		deps.Registry = registry.New()
	}
	if deps.Tuning == (tuning.Tuning{}) {
		deps.Tuning = tuning.Defaults()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var sd *state.SaveData
	if !newGame {
		sd = deps.Saves.Load(slot)
	}
	if sd != nil {
		resumed = true
	} else {
		sd = deps.Saves.CreateNewSave(slot, name)
		if !deps.Saves.Save(sd, false) {
			deps.Logger.Printf("slot %d: initial save failed, playing unsaved", slot)
		}
	}

	s = &Session{
		deps:     deps,
		logger:   deps.Logger,
		now:      deps.Now,
		builder:  snapshot.NewBuilder(deps.Registry, deps.Tuning),
		engine:   constraints.New(deps.Tuning, deps.Timeline, deps.Screener),
		recorder: feedback.NewRecorder(),
		sd:       sd,
	}
	s.applier = effects.Applier{Registry: deps.Registry, Timeline: deps.Timeline, Events: deps.Saves}

	var narratives []string
	for _, line := range sd.DialogueHistory {
		if !strings.HasPrefix(line, PlayerLinePrefix) {
			narratives = append(narratives, line)
		}
	}
	s.engine.Prime(narratives)
	s.over = isOver(deps.Tuning, sd.World.Time.Year)
	s.refreshView()
	return s, resumed, nil
}

func isOver(t tuning.Tuning, year int) bool {
	return (t.GameOver.TerminalYear > 0 && year >= t.GameOver.TerminalYear) ||
		(t.GameOver.Span > 0 && year > t.StartYear+t.GameOver.Span)
}

func (s *Session) refreshView() {
	v := View{
		Slot:       s.sd.Meta.SaveSlot,
		PlayerID:   s.sd.Meta.PlayerID,
		SaveName:   s.sd.Meta.SaveName,
		TotalTurns: s.sd.Progress.TotalTurns,
		World:      s.sd.World.Clone(),
	}
	s.mu.Lock()
	v.GameOver = s.over
	s.view = v
	s.mu.Unlock()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.World = v.World.Clone()
	return v
}

// Failures returns the most recent generator failures, oldest first.
func (s *Session) Failures() []feedback.Failure {
	return s.recorder.Entries()
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrTurnInFlight
	}
	if s.over {
		return ErrGameOver
	}
	s.inFlight = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Turn adjudicates one intent. Only one turn runs at a time; a concurrent
// call fails fast with ErrTurnInFlight.
func (s *Session) Turn(ctx context.Context, intent string) (Outcome, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return Outcome{}, ErrEmptyIntent
	}
	if err := s.begin(); err != nil {
		return Outcome{}, err
	}
	defer s.end()

	sd := s.sd
	p := s.engine.Apply(s.builder.Build(sd, intent, nil))
	entry := turnlog.TurnLogEntry{
		At:             s.now().UnixMilli(),
		Slot:           sd.Meta.SaveSlot,
		PlayerID:       sd.Meta.PlayerID,
		Round:          p.Round,
		Intent:         intent,
		LogicalResults: p.LogicalResults,
	}

	if reason, blocked := s.screen(ctx, p); blocked {
		entry.Blocked, entry.BlockReason = true, reason
		entry.Time = sd.World.Time
		s.writeTurn(entry)
		return Outcome{Round: p.Round, Blocked: true, BlockReason: reason, World: sd.World.Clone()}, nil
	}

	resp, err := s.deps.Generator.Adjudicate(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return s.fallback(sd, p, intent, err, entry), nil
	}

	narrative := resp.Result.Narrative
	rep := s.applier.Apply(sd, p, resp)
	s.deps.Saves.AddDialogueHistory(sd, PlayerLinePrefix+intent)
	if narrative != "" {
		s.deps.Saves.AddDialogueHistory(sd, narrative)
		s.engine.Observe(narrative)
	}
	sd.Progress.TotalTurns++
	saved := s.deps.Saves.Save(sd, true)

	out := Outcome{
		Round:     p.Round,
		Narrative: narrative,
		Effects:   rep.Applied,
		World:     sd.World.Clone(),
		Saved:     saved,
	}
	if lr := p.LogicalResults; lr != nil {
		out.Mood = lr.Mood
		out.GameOver, out.GameOverReason = lr.GameOver, lr.GameOverReason
	}
	if out.GameOver {
		s.finish(sd, out.GameOverReason)
	}

	entry.Narrative = narrative
	entry.Applied, entry.Unknown, entry.Rejected, entry.Events = rep.Applied, rep.Unknown, rep.Rejected, rep.Events
	entry.Time, entry.GameOver, entry.Saved = sd.World.Time, out.GameOver, saved
	s.writeTurn(entry)
	s.refreshView()
	return out, nil
}

// screen blocks on the engine's local verdict first, then asks the
// screener, which may consult the remote moderator.
func (s *Session) screen(ctx context.Context, p protocol.Payload) (string, bool) {
	if lr := p.LogicalResults; lr != nil && lr.Safety != nil && !lr.Safety.Allowed {
		return lr.Safety.Reason, true
	}
	v := s.deps.Screener.Screen(ctx, p.PlayerIntent)
	if !v.Allowed {
		return v.Reason, true
	}
	return "", false
}

var fallbackLines = []string{
	"天色骤变，风雨晦暗，前路一时看不分明。你暂且按下念头，静待时机。",
	"一阵喧哗打断了你的思绪，待四下安静，方才的打算已无从谈起。",
	"驿道上尘土飞扬，消息迟迟未至。你只得再作打算。",
}

// fallback answers a failed generator call in fiction. Only the player's
// line is recorded; world state is left as it was.
func (s *Session) fallback(sd *state.SaveData, p protocol.Payload, intent string, err error, entry turnlog.TurnLogEntry) Outcome {
	kind := "internal"
	var terr *generator.TransportError
	var perr *generator.ProtocolError
	switch {
	case errors.As(err, &terr):
		kind = "transport"
	case errors.As(err, &perr):
		kind = "protocol"
	}
	s.recorder.Record(kind, err.Error())
	s.logger.Printf("slot %d round %d: generator %s failure: %v", sd.Meta.SaveSlot, p.Round, kind, err)

	s.deps.Saves.AddDialogueHistory(sd, PlayerLinePrefix+intent)
	saved := s.deps.Saves.Save(sd, true)
	narrative := fallbackLines[p.Round%len(fallbackLines)]

	entry.Fallback, entry.Failure = true, kind
	entry.Narrative = narrative
	entry.Time, entry.Saved = sd.World.Time, saved
	s.writeTurn(entry)
	s.refreshView()
	return Outcome{
		Round:     p.Round,
		Narrative: narrative,
		Fallback:  true,
		World:     sd.World.Clone(),
		Saved:     saved,
	}
}

func (s *Session) finish(sd *state.SaveData, reason string) {
	s.mu.Lock()
	s.over = true
	s.mu.Unlock()
	if s.deps.ArchiveDir == "" {
		return
	}
	path, err := archive.ArchiveSave(s.deps.ArchiveDir, sd, reason, s.now())
	if err != nil {
		s.logger.Printf("slot %d: archive failed: %v", sd.Meta.SaveSlot, err)
		return
	}
	s.logger.Printf("slot %d: game over (%s), archived to %s", sd.Meta.SaveSlot, reason, path)
	if s.deps.Offsite != nil {
		base := "archives/" + filepath.Base(path)
		s.deps.Offsite.Enqueue(base+"/save.json", filepath.Join(path, "save.json"))
		s.deps.Offsite.Enqueue(base+"/meta.json", filepath.Join(path, "meta.json"))
	}
}

func (s *Session) writeTurn(e turnlog.TurnLogEntry) {
	if s.deps.TurnLog == nil {
		return
	}
	if err := s.deps.TurnLog.WriteTurn(e); err != nil {
		s.logger.Printf("turn log: %v", err)
	}
}
