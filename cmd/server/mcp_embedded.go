package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"chronicle.ai/internal/config"
	"chronicle.ai/internal/session"
	"chronicle.ai/internal/transport/mcp"
)

type embeddedMCP struct {
	httpSrv *http.Server
	ln      net.Listener
	agents  *mcp.Agents

	closeOnce sync.Once
}

func (e *embeddedMCP) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.httpSrv.Shutdown(ctx)
		_ = e.ln.Close()
		e.agents.Shutdown()
	})
}

// startEmbeddedMCP serves the agent tool endpoint on its own listener. The
// agents share deps.Slots with the socket server.
func startEmbeddedMCP(ctx context.Context, env config.Env, deps session.Deps, timelineDigest string) (*embeddedMCP, error) {
	logger := log.New(os.Stdout, "[mcp] ", log.LstdFlags|log.Lmicroseconds)
	listen := strings.TrimSpace(env.MCPListen)
	if listen == "" {
		logger.Printf("embedded MCP disabled (CHRONICLE_MCP_LISTEN empty)")
		return nil, nil
	}
	secret := strings.TrimSpace(env.MCPHMACSecret)
	if secret == "" && !isLoopbackListenAddress(listen) {
		return nil, fmt.Errorf("refusing MCP listen on non-loopback address %q without hmac secret", listen)
	}

	agents, err := mcp.NewAgents(mcp.AgentsConfig{
		Deps:           deps,
		TimelineDigest: timelineDigest,
		StateFile:      env.MCPStateFile,
		MaxSessions:    env.MCPMaxSessions,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp agents: %w", err)
	}
	srv, err := mcp.NewServer(mcp.Config{Tools: agents, HMACSecret: secret, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("mcp server: %w", err)
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("mcp listen: %w", err)
	}

	authMode := "none(loopback-only)"
	if secret != "" {
		authMode = "hmac"
	}
	logger.Printf("listening on http://%s auth_mode=%s state=%s", listen, authMode, env.MCPStateFile)

	em := &embeddedMCP{
		httpSrv: &http.Server{Addr: listen, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second},
		ln:      ln,
		agents:  agents,
	}
	go func() {
		<-ctx.Done()
		em.Close()
	}()
	go func() {
		if err := em.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Printf("serve: %v", err)
		}
	}()
	return em, nil
}

func isLoopbackListenAddress(addr string) bool {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = strings.TrimSpace(h)
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
