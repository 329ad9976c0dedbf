package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	StartYear          int `yaml:"start_year" json:"start_year"`
	MaxDialogueHistory int `yaml:"max_dialogue_history" json:"max_dialogue_history"`
	RecentDialogue     int `yaml:"recent_dialogue" json:"recent_dialogue"`
	Milestones         int `yaml:"milestones" json:"milestones"`
	MaxRecordBytes     int `yaml:"max_record_bytes" json:"max_record_bytes"`

	TimeSkip    TimeSkip    `yaml:"time_skip" json:"time_skip"`
	Physiology  Physiology  `yaml:"physiology" json:"physiology"`
	Diversity   Diversity   `yaml:"diversity" json:"diversity"`
	Perspective Perspective `yaml:"perspective" json:"perspective"`
	Aspiration  Aspiration  `yaml:"aspiration" json:"aspiration"`
	Resonance   Resonance   `yaml:"resonance" json:"resonance"`
	GameOver    GameOver    `yaml:"game_over" json:"game_over"`
}

type TimeSkip struct {
	MaxYears int `yaml:"max_years" json:"max_years"`
}

type Physiology struct {
	LowHealth  int `yaml:"low_health" json:"low_health"`
	HighHunger int `yaml:"high_hunger" json:"high_hunger"`
}

type Diversity struct {
	Lookback     int     `yaml:"lookback" json:"lookback"`
	MinSample    int     `yaml:"min_sample" json:"min_sample"`
	OverlapRatio float64 `yaml:"overlap_ratio" json:"overlap_ratio"`
	TopN         int     `yaml:"top_n" json:"top_n"`
	HoldRounds   int     `yaml:"hold_rounds" json:"hold_rounds"`
}

type Perspective struct {
	Streak int `yaml:"streak" json:"streak"`
}

type Aspiration struct {
	Every int `yaml:"every" json:"every"`
}

type Resonance struct {
	After int `yaml:"after" json:"after"`
	Max   int `yaml:"max" json:"max"`
}

type GameOver struct {
	Span         int `yaml:"span" json:"span"`
	TerminalYear int `yaml:"terminal_year" json:"terminal_year"`
}

func Defaults() Tuning {
	return Tuning{
		StartYear:          184,
		MaxDialogueHistory: 100,
		RecentDialogue:     5,
		Milestones:         10,
		MaxRecordBytes:     256 * 1024,
		TimeSkip:           TimeSkip{MaxYears: 10},
		Physiology:         Physiology{LowHealth: 20, HighHunger: 80},
		Diversity: Diversity{
			Lookback:     10,
			MinSample:    3,
			OverlapRatio: 0.7,
			TopN:         5,
			HoldRounds:   3,
		},
		Perspective: Perspective{Streak: 5},
		Aspiration:  Aspiration{Every: 8},
		Resonance:   Resonance{After: 50, Max: 2},
		GameOver:    GameOver{Span: 60, TerminalYear: 280},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only
// overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.MaxDialogueHistory <= 0:
		return fmt.Errorf("max_dialogue_history must be > 0")
	case t.RecentDialogue < 0:
		return fmt.Errorf("recent_dialogue must be >= 0")
	case t.MaxRecordBytes <= 0:
		return fmt.Errorf("max_record_bytes must be > 0")
	case t.TimeSkip.MaxYears <= 0:
		return fmt.Errorf("time_skip.max_years must be > 0")
	case t.Diversity.Lookback <= 0 || t.Diversity.MinSample < 2 || t.Diversity.MinSample > t.Diversity.Lookback:
		return fmt.Errorf("diversity: need lookback > 0 and 2 <= min_sample <= lookback")
	case t.Diversity.OverlapRatio <= 0 || t.Diversity.OverlapRatio > 1:
		return fmt.Errorf("diversity.overlap_ratio must be in (0,1]")
	case t.Perspective.Streak <= 0:
		return fmt.Errorf("perspective.streak must be > 0")
	case t.Aspiration.Every <= 0:
		return fmt.Errorf("aspiration.every must be > 0")
	case t.GameOver.Span <= 0:
		return fmt.Errorf("game_over.span must be > 0")
	}
	return nil
}

// Digest is the sha256 of the canonical JSON form, reported to clients so a
// save can be matched to the rules it was played under.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
