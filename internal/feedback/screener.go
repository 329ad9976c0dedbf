package feedback

import (
	"context"
	"io"
	"log"
)

type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Screener runs the local blocklist, then the optional remote moderator.
// An absent or failing moderator counts as allowed.
type Screener struct {
	blocklist *Blocklist
	moderator Moderator
	logger    *log.Logger
}

func NewScreener(b *Blocklist, m Moderator, logger *log.Logger) *Screener {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Screener{blocklist: b, moderator: m, logger: logger}
}

// Check exposes the local blocklist alone.
func (s *Screener) Check(text string) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.blocklist.Check(text)
}

func (s *Screener) Screen(ctx context.Context, text string) Verdict {
	if s == nil {
		return Verdict{Allowed: true}
	}
	if term, hit := s.blocklist.Check(text); hit {
		return Verdict{Allowed: false, Reason: "blocked term: " + term}
	}
	if s.moderator == nil {
		return Verdict{Allowed: true}
	}
	v, err := s.moderator.Moderate(ctx, text)
	if err != nil {
		s.logger.Printf("moderation unavailable, allowing: %v", err)
		return Verdict{Allowed: true}
	}
	if !v.Allowed && v.Reason == "" {
		v.Reason = "rejected by moderation"
	}
	return v
}
