// Package feedback holds the safety screen and the recent-failure recorder
// the session consults around each turn.
package feedback

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Blocklist matches text against a fixed term list after NFKC folding and
// lowercasing, so full-width and compatibility forms cannot slip past.
type Blocklist struct {
	terms []string
}

func NewBlocklist(terms ...string) *Blocklist {
	b := &Blocklist{}
	seen := map[string]bool{}
	for _, t := range terms {
		t = normalize(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		b.terms = append(b.terms, t)
	}
	return b
}

// LoadBlocklist reads one term per line. Blank lines and lines starting with
// '#' are ignored. A missing file yields an empty list.
func LoadBlocklist(path string) (*Blocklist, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewBlocklist(), nil
		}
		return nil, err
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewBlocklist(terms...), nil
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(s)))
}

func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.terms)
}

// Check returns the first blocked term found in text.
func (b *Blocklist) Check(text string) (string, bool) {
	if b == nil || len(b.terms) == 0 {
		return "", false
	}
	s := normalize(text)
	for _, t := range b.terms {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}
