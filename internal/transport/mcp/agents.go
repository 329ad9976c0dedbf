package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chronicle.ai/internal/feedback"
	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/session"
)

var errNotOpen = errors.New("no game open for this agent; call chronicle.open first")

// argError is a tool call with unusable arguments.
type argError struct{ msg string }

func (e *argError) Error() string { return "bad arguments: " + e.msg }

type AgentsConfig struct {
	Deps           session.Deps
	TimelineDigest string

	// StateFile keeps each agent's last slot across restarts. Empty keeps
	// it in memory only.
	StateFile   string
	MaxSessions int

	Now func() time.Time
}

type OpenArgs struct {
	Slot       int    `json:"slot"`
	SaveName   string `json:"save_name,omitempty"`
	NewGame    bool   `json:"new_game,omitempty"`
	ResumeOnly bool   `json:"resume_only,omitempty"`
}

type TurnArgs struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type agentBinding struct {
	sess     *session.Session
	slot     int
	lastUsed time.Time
}

type persistedAgent struct {
	Slot       int    `json:"slot"`
	PlayerID   string `json:"player_id,omitempty"`
	LastUsedAt string `json:"last_used_at,omitempty"`
}

// Agents maps MCP agent ids onto game sessions. Each agent drives at most
// one slot; the least recently used binding is dropped when MaxSessions is
// reached.
type Agents struct {
	cfg AgentsConfig

	mu     sync.Mutex
	bound  map[string]*agentBinding
	state  map[string]persistedAgent
	closed bool
}

func NewAgents(cfg AgentsConfig) (*Agents, error) {
	if cfg.Deps.Saves == nil || cfg.Deps.Generator == nil {
		return nil, fmt.Errorf("agents need a save manager and a generator")
	}
	if cfg.Deps.Slots == nil {
		cfg.Deps.Slots = session.NewSlots()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	st, err := loadAgentState(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	return &Agents{cfg: cfg, bound: map[string]*agentBinding{}, state: st}, nil
}

func owner(agent string) string { return "mcp:" + agent }

// Open binds agent to a slot, dropping any slot it held before.
func (a *Agents) Open(ctx context.Context, agent string, args OpenArgs) (protocol.WelcomeMsg, error) {
	if args.Slot < 0 {
		return protocol.WelcomeMsg{}, &argError{"slot must be >= 0"}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return protocol.WelcomeMsg{}, fmt.Errorf("agents closed")
	}
	a.unbindLocked(agent)
	return a.bindLocked(agent, args)
}

func (a *Agents) bindLocked(agent string, args OpenArgs) (protocol.WelcomeMsg, error) {
	if len(a.bound) >= a.cfg.MaxSessions {
		a.evictLocked()
	}
	sess, resumed, err := session.OpenClaimed(a.cfg.Deps, owner(agent), args.Slot, args.SaveName, args.NewGame, args.ResumeOnly)
	if err != nil {
		return protocol.WelcomeMsg{}, err
	}
	now := a.cfg.Now()
	a.bound[agent] = &agentBinding{sess: sess, slot: args.Slot, lastUsed: now}
	v := sess.View()
	a.state[agent] = persistedAgent{Slot: args.Slot, PlayerID: v.PlayerID, LastUsedAt: now.UTC().Format(time.RFC3339Nano)}
	a.persistLocked()
	return v.Welcome(resumed, a.cfg.TimelineDigest), nil
}

// session returns the agent's live session, reattaching to the slot it last
// played when the binding was evicted or the server restarted.
func (a *Agents) session(agent string) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("agents closed")
	}
	if b := a.bound[agent]; b != nil {
		b.lastUsed = a.cfg.Now()
		return b.sess, nil
	}
	ps, ok := a.state[agent]
	if !ok {
		return nil, errNotOpen
	}
	if _, err := a.bindLocked(agent, OpenArgs{Slot: ps.Slot, ResumeOnly: true}); err != nil {
		return nil, err
	}
	return a.bound[agent].sess, nil
}

func (a *Agents) View(ctx context.Context, agent string) (protocol.WelcomeMsg, error) {
	s, err := a.session(agent)
	if err != nil {
		return protocol.WelcomeMsg{}, err
	}
	return s.View().Welcome(true, a.cfg.TimelineDigest), nil
}

func (a *Agents) Turn(ctx context.Context, agent string, args TurnArgs) (protocol.NarrativeMsg, error) {
	s, err := a.session(agent)
	if err != nil {
		return protocol.NarrativeMsg{}, err
	}
	out, err := s.Turn(ctx, args.Text)
	if err != nil {
		return protocol.NarrativeMsg{}, err
	}
	return out.Message(args.ID), nil
}

func (a *Agents) Failures(ctx context.Context, agent string) ([]feedback.Failure, error) {
	s, err := a.session(agent)
	if err != nil {
		return nil, err
	}
	f := s.Failures()
	if f == nil {
		f = []feedback.Failure{}
	}
	return f, nil
}

// Close releases the agent's slot. The remembered slot is kept so a later
// call resumes it.
func (a *Agents) Close(ctx context.Context, agent string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unbindLocked(agent)
	return nil
}

// Shutdown releases every slot held through this endpoint.
func (a *Agents) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for agent := range a.bound {
		a.unbindLocked(agent)
	}
	a.closed = true
}

func (a *Agents) unbindLocked(agent string) {
	b := a.bound[agent]
	if b == nil {
		return
	}
	a.cfg.Deps.Slots.Release(b.slot, owner(agent))
	delete(a.bound, agent)
}

func (a *Agents) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for k, b := range a.bound {
		if oldestKey == "" || b.lastUsed.Before(oldest) {
			oldestKey, oldest = k, b.lastUsed
		}
	}
	if oldestKey != "" {
		a.unbindLocked(oldestKey)
	}
}

// persistLocked rewrites the whole state file; it only changes on open.
func (a *Agents) persistLocked() {
	if a.cfg.StateFile == "" {
		return
	}
	b, _ := json.MarshalIndent(a.state, "", "  ")
	_ = writeFileAtomic(a.cfg.StateFile, append(b, '\n'))
}

func loadAgentState(path string) (map[string]persistedAgent, error) {
	if path == "" {
		return map[string]persistedAgent{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]persistedAgent{}, nil
		}
		return nil, err
	}
	var m map[string]persistedAgent
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse agent state file: %w", err)
	}
	if m == nil {
		m = map[string]persistedAgent{}
	}
	return m, nil
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
