// Package mcp exposes the game as JSON-RPC tools so an LLM agent can play a
// save slot over plain HTTP. Agents are identified by the x-agent-id header,
// optionally HMAC-signed.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"chronicle.ai/internal/feedback"
	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/session"
)

// Tools is what the endpoint drives; *Agents implements it.
type Tools interface {
	Open(ctx context.Context, agent string, args OpenArgs) (protocol.WelcomeMsg, error)
	View(ctx context.Context, agent string) (protocol.WelcomeMsg, error)
	Turn(ctx context.Context, agent string, args TurnArgs) (protocol.NarrativeMsg, error)
	Failures(ctx context.Context, agent string) ([]feedback.Failure, error)
	Close(ctx context.Context, agent string) error
}

const (
	toolOpen     = "chronicle.open"
	toolView     = "chronicle.view"
	toolTurn     = "chronicle.turn"
	toolFailures = "chronicle.failures"
	toolClose    = "chronicle.close"
)

type Config struct {
	Tools      Tools
	HMACSecret string
	Logger     *log.Logger
}

type Server struct {
	tools      Tools
	hmacSecret []byte
	nonces     *nonceGuard
	logger     *log.Logger
	now        func() time.Time
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("nil tools")
	}
	s := &Server{tools: cfg.Tools, logger: cfg.Logger, now: time.Now}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if strings.TrimSpace(cfg.HMACSecret) != "" {
		s.hmacSecret = []byte(cfg.HMACSecret)
		s.nonces = newNonceGuard(0)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/mcp", s.handleMCP)
	return mux
}

func (s *Server) handleMCP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(rw, "bad body", http.StatusBadRequest)
		return
	}
	_ = r.Body.Close()

	agent := strings.TrimSpace(r.Header.Get(headerAgentID))
	if len(s.hmacSecret) > 0 {
		now := s.now()
		ar := verifyHMAC(r, body, s.hmacSecret, now)
		if !ar.ok() {
			http.Error(rw, ar.Message, ar.HTTPStatus)
			return
		}
		if !s.nonces.allow(ar.AgentID, ar.Nonce, now) {
			http.Error(rw, "replayed nonce", http.StatusUnauthorized)
			return
		}
		agent = ar.AgentID
	}
	if agent == "" {
		agent = "default"
	}

	req, err := parseRPCRequest(body)
	if err != nil {
		http.Error(rw, "bad jsonrpc request", http.StatusBadRequest)
		return
	}

	resp := s.dispatch(r.Context(), agent, req)
	rw.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}

func (s *Server) dispatch(ctx context.Context, agent string, req rpcRequest) rpcResponse {
	switch req.Method {
	case "initialize":
		return rpcOK(req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "chronicle", "version": protocol.Version},
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
		})

	case "list_tools", "tools/list":
		return rpcOK(req.ID, map[string]any{"tools": toolsList()})

	case "call_tool", "tools/call":
		var p struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if len(req.Params) == 0 {
			return rpcErr(req.ID, codeInvalidParams, "missing params", nil)
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return rpcErr(req.ID, codeInvalidParams, "bad params", err.Error())
		}
		if p.Name == "" {
			return rpcErr(req.ID, codeInvalidParams, "missing tool name", nil)
		}
		if !isKnownTool(p.Name) {
			return rpcErr(req.ID, codeMethodNotFound, "tool not found", map[string]any{"name": p.Name})
		}
		out, err := s.callTool(ctx, agent, p.Name, p.Arguments)
		if err != nil {
			code := wireCode(err)
			msg := err.Error()
			if code == protocol.ErrInternal {
				s.logger.Printf("agent %s: %s: %v", agent, p.Name, err)
				msg = "tool failed"
			}
			return rpcErr(req.ID, codeToolFailed, msg, map[string]any{"code": code})
		}
		return rpcOK(req.ID, out)

	default:
		return rpcErr(req.ID, codeMethodNotFound, "method not found", nil)
	}
}

// wireCode maps a tool error onto the E_* codes the socket protocol uses.
func wireCode(err error) string {
	var ae *argError
	switch {
	case errors.As(err, &ae):
		return protocol.ErrBadRequest
	case errors.Is(err, errNotOpen):
		return protocol.ErrSlotNotFound
	}
	return session.ErrorCode(err)
}

func emptyObject() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}, "additionalProperties": false}
}

func toolsList() []map[string]any {
	return []map[string]any{
		{
			"name":        toolOpen,
			"description": "Open a save slot for this agent: resume it, or start a new game there.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"slot":        map[string]any{"type": "integer", "minimum": 0},
					"save_name":   map[string]any{"type": "string"},
					"new_game":    map[string]any{"type": "boolean"},
					"resume_only": map[string]any{"type": "boolean"},
				},
				"required": []string{"slot"},
			},
		},
		{
			"name":        toolView,
			"description": "Get the open game's world state, turn count and game-over flag.",
			"inputSchema": emptyObject(),
		},
		{
			"name":        toolTurn,
			"description": "Play one turn: the player's intent in free text. Returns the narrative and the new world state.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"text": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []string{"text"},
			},
		},
		{
			"name":        toolFailures,
			"description": "List the most recent narrative service failures for the open game.",
			"inputSchema": emptyObject(),
		},
		{
			"name":        toolClose,
			"description": "Release the slot. The agent's last slot is remembered and resumed on the next call.",
			"inputSchema": emptyObject(),
		},
	}
}

func (s *Server) callTool(ctx context.Context, agent, name string, args json.RawMessage) (any, error) {
	switch name {
	case toolOpen:
		var a OpenArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return s.tools.Open(ctx, agent, a)

	case toolView:
		return s.tools.View(ctx, agent)

	case toolTurn:
		var a TurnArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if strings.TrimSpace(a.Text) == "" {
			return nil, &argError{"missing text"}
		}
		return s.tools.Turn(ctx, agent, a)

	case toolFailures:
		return s.tools.Failures(ctx, agent)

	case toolClose:
		if err := s.tools.Close(ctx, agent); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &argError{"missing arguments"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &argError{err.Error()}
	}
	return nil
}

func isKnownTool(name string) bool {
	switch name {
	case toolOpen, toolView, toolTurn, toolFailures, toolClose:
		return true
	default:
		return false
	}
}
