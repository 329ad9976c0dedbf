package mcp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	headerAgentID   = "x-agent-id"
	headerTS        = "x-ts"
	headerSignature = "x-signature"
	headerNonce     = "x-nonce"

	// Requests signed further than this from the server clock are refused.
	signatureWindow = 5 * time.Minute
)

// canonicalString is what a client signs: timestamp, method, path, agent,
// nonce and the raw body, newline separated.
func canonicalString(ts, method, pathname, agentID, nonce string, rawBody []byte) string {
	return ts + "\n" + strings.ToUpper(method) + "\n" + pathname + "\n" +
		strings.TrimSpace(agentID) + "\n" + strings.TrimSpace(nonce) + "\n" + string(rawBody)
}

func signHMAC(secret []byte, canonical string) string {
	h := hmac.New(sha256.New, secret)
	_, _ = h.Write([]byte(canonical))
	return hex.EncodeToString(h.Sum(nil))
}

type authResult struct {
	AgentID    string
	Nonce      string
	HTTPStatus int
	Message    string
}

func (r authResult) ok() bool { return r.HTTPStatus == 0 }

func unauthorized(msg string) authResult {
	return authResult{HTTPStatus: http.StatusUnauthorized, Message: msg}
}

func verifyHMAC(r *http.Request, rawBody []byte, secret []byte, now time.Time) authResult {
	agentID := strings.TrimSpace(r.Header.Get(headerAgentID))
	if agentID == "" {
		return unauthorized("missing x-agent-id")
	}
	tsStr := strings.TrimSpace(r.Header.Get(headerTS))
	if tsStr == "" {
		return unauthorized("missing x-ts")
	}
	sig := strings.ToLower(strings.TrimSpace(r.Header.Get(headerSignature)))
	if sig == "" {
		return unauthorized("missing x-signature")
	}
	nonce := strings.TrimSpace(r.Header.Get(headerNonce))
	if nonce == "" {
		return unauthorized("missing x-nonce")
	}

	tsMS, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return unauthorized("bad x-ts")
	}
	if d := now.UnixMilli() - tsMS; d > signatureWindow.Milliseconds() || d < -signatureWindow.Milliseconds() {
		return unauthorized("x-ts outside window")
	}

	want := signHMAC(secret, canonicalString(tsStr, r.Method, r.URL.Path, agentID, nonce, rawBody))
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return unauthorized("bad signature")
	}
	return authResult{AgentID: agentID, Nonce: nonce}
}

// nonceGuard refuses a nonce seen for the same agent within ttl.
type nonceGuard struct {
	mu        sync.Mutex
	seen      map[string]int64
	ttl       time.Duration
	lastPrune int64
}

func newNonceGuard(ttl time.Duration) *nonceGuard {
	if ttl <= 0 {
		ttl = 2 * signatureWindow
	}
	return &nonceGuard{seen: map[string]int64{}, ttl: ttl}
}

func (g *nonceGuard) allow(agentID, nonce string, now time.Time) bool {
	if g == nil || nonce == "" {
		return true
	}
	key := agentID + "|" + nonce
	nowMS := now.UnixMilli()

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.seen) > 4096 || nowMS-g.lastPrune > g.ttl.Milliseconds()/2 {
		for k, exp := range g.seen {
			if exp <= nowMS {
				delete(g.seen, k)
			}
		}
		g.lastPrune = nowMS
	}
	if exp, ok := g.seen[key]; ok && exp > nowMS {
		return false
	}
	g.seen[key] = nowMS + g.ttl.Milliseconds()
	return true
}
