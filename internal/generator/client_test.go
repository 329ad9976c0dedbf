package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/state"
)

func payload() protocol.Payload {
	return protocol.Payload{
		PlayerState:  state.DefaultPlayer(),
		WorldState:   state.DefaultWorld(),
		PlayerIntent: "闭关 5 年",
		Round:        1,
	}
}

func newClient(url string) *Client {
	return New(Config{URL: url, Token: "secret", Delay: time.Millisecond, Timeout: time.Second})
}

func TestAdjudicate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("bad request: %s %q", r.Method, r.Header.Get("Authorization"))
		}
		var p protocol.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.PlayerIntent != "闭关 5 年" {
			t.Errorf("payload=%+v err=%v", p, err)
		}
		_, _ = w.Write([]byte(`{"result":{"narrative":"五年过去","effects":["legend:+5"]}}`))
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL).Adjudicate(context.Background(), payload())
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Result.Narrative != "五年过去" || len(resp.Result.Effects) != 1 {
		t.Fatalf("resp=%+v", resp.Result)
	}
}

func TestAdjudicate_RetriesTransportOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"narrative":"ok"}}`))
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL).Adjudicate(context.Background(), payload())
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Result.Narrative != "ok" || calls.Load() != 2 {
		t.Fatalf("narrative=%q calls=%d", resp.Result.Narrative, calls.Load())
	}
}

func TestAdjudicate_TransportErrorAfterBound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Adjudicate(context.Background(), payload())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err=%v (%T)", err, err)
	}
	if terr.Attempts != DefaultAttempts || calls.Load() != DefaultAttempts {
		t.Fatalf("attempts=%d calls=%d", terr.Attempts, calls.Load())
	}
}

func TestAdjudicate_TimeoutIsRetryable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"result":{"narrative":"late"}}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Delay: time.Millisecond, Timeout: 50 * time.Millisecond})
	resp, err := c.Adjudicate(context.Background(), payload())
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if resp.Result.Narrative != "late" {
		t.Fatalf("resp=%+v", resp.Result)
	}
}

func TestAdjudicate_MissingResultIsProtocolError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"state_changes":{"player":["attr:health:+1"]}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Adjudicate(context.Background(), payload())
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err=%v (%T)", err, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("protocol errors must not retry: calls=%d", calls.Load())
	}
}

func TestOffline_NarratesResults(t *testing.T) {
	p := payload()
	p.LogicalResults = &protocol.LogicalResults{
		TimePassed:   5,
		TimeUnit:     protocol.UnitYear,
		WorldChanges: []protocol.WorldChange{{ID: "he_jin_killed", Year: 189, Label: "何进被杀", EffectHint: "洛阳大乱"}},
	}
	resp, err := Offline{}.Adjudicate(context.Background(), p)
	if err != nil || resp.Result == nil || resp.Result.Narrative == "" {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
	if len(resp.Result.Effects) != 1 || resp.Result.Effects[0] != "legend:+5" {
		t.Fatalf("effects=%v", resp.Result.Effects)
	}
}
