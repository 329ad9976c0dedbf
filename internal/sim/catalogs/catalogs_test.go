package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ConfigsDir(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Timeline.Events) == 0 || c.Timeline.Digest == "" {
		t.Fatalf("timeline not loaded")
	}
	for i := 1; i < len(c.Timeline.Events); i++ {
		if c.Timeline.Events[i-1].Year > c.Timeline.Events[i].Year {
			t.Fatalf("timeline not ordered at %d", i)
		}
	}
	if len(c.Entities.NPCs) == 0 {
		t.Fatalf("entities not loaded")
	}
}

func TestLoad_MissingFilesFallBackToDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Timeline.Events) != len(defaultTimeline) {
		t.Fatalf("expected default timeline, got %d events", len(c.Timeline.Events))
	}
}

func TestLoad_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	body := `[{"id":"a","year":190,"label":"x","effect_hint":"y"},{"id":"a","year":191,"label":"x","effect_hint":"y"}]`
	if err := os.WriteFile(filepath.Join(dir, "timeline.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestTimelineBetweenInclusive(t *testing.T) {
	tl := Defaults().Timeline
	got := tl.Between(184, 190)
	years := map[int]bool{}
	for _, ev := range got {
		years[ev.Year] = true
	}
	if !years[184] || !years[189] || !years[190] {
		t.Fatalf("expected 184, 189 and 190 events, got %+v", got)
	}
	for _, ev := range got {
		if ev.Year < 184 || ev.Year > 190 {
			t.Fatalf("event outside range: %+v", ev)
		}
	}
	if len(tl.Between(191, 191)) != 0 {
		t.Fatalf("no events expected in 191")
	}
	if tl.Between(200, 190) != nil {
		t.Fatalf("inverted range should be empty")
	}
}
