package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ConfigsTuningYAML(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning.yaml: %v", err)
	}
	if tu.Diversity.OverlapRatio != 0.7 || tu.Diversity.Lookback != 10 {
		t.Fatalf("unexpected diversity tuning: %+v", tu.Diversity)
	}
	if tu.GameOver.TerminalYear != 280 || tu.Resonance.After != 50 {
		t.Fatalf("unexpected tuning: %+v", tu)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("physiology:\n  low_health: 35\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.Physiology.LowHealth != 35 {
		t.Fatalf("override lost: %d", tu.Physiology.LowHealth)
	}
	if tu.Physiology.HighHunger != 80 || tu.MaxDialogueHistory != 100 {
		t.Fatalf("defaults lost: %+v", tu)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("diversity:\n  overlap_ratio: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDigestStable(t *testing.T) {
	if Defaults().Digest() != Defaults().Digest() {
		t.Fatalf("digest must be deterministic")
	}
	a := Defaults()
	a.StartYear = 190
	if a.Digest() == Defaults().Digest() {
		t.Fatalf("digest should change with values")
	}
}
