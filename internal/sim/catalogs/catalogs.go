package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Timeline TimelineCatalog
	Entities EntityCatalog
}

// TimelineCatalog is the static, year-ordered list of historical events.
type TimelineCatalog struct {
	Events []TimelineEvent
	Digest string
}

type TimelineEvent struct {
	ID         string `json:"id"`
	Year       int    `json:"year"`
	Label      string `json:"label"`
	EffectHint string `json:"effect_hint"`
	Flag       string `json:"flag,omitempty"`
	// Region, when set, is moved to RegionStatus once the event is applied.
	Region       string `json:"region,omitempty"`
	RegionStatus string `json:"region_status,omitempty"`
}

// EntityCatalog lists the ids the engine knows about, per registry type.
type EntityCatalog struct {
	NPCs    []string `json:"npcs"`
	Regions []string `json:"regions"`
	Items   []string `json:"items"`
	Digest  string   `json:"-"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadTimeline(filepath.Join(configDir, "timeline.json"), &c.Timeline); err != nil {
		return nil, err
	}
	if err := loadEntities(filepath.Join(configDir, "entities.json"), &c.Entities); err != nil {
		return nil, err
	}
	return &c, nil
}

// Defaults returns the built-in catalogs used when no config directory is
// available (tests, offline play).
func Defaults() *Catalogs {
	raw, _ := json.Marshal(defaultTimeline)
	tl := TimelineCatalog{Events: append([]TimelineEvent(nil), defaultTimeline...), Digest: sha256Hex(raw)}
	sortTimeline(tl.Events)

	ents := EntityCatalog{
		NPCs:    append([]string(nil), defaultEntities.NPCs...),
		Regions: append([]string(nil), defaultEntities.Regions...),
		Items:   append([]string(nil), defaultEntities.Items...),
	}
	eraw, _ := json.Marshal(ents)
	ents.Digest = sha256Hex(eraw)
	return &Catalogs{Timeline: tl, Entities: ents}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadTimeline(path string, out *TimelineCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*out = Defaults().Timeline
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var evs []TimelineEvent
	if err := json.Unmarshal(raw, &evs); err != nil {
		return fmt.Errorf("timeline.json: %w", err)
	}
	seen := map[string]struct{}{}
	for _, ev := range evs {
		if ev.ID == "" {
			return fmt.Errorf("timeline.json: empty id")
		}
		if ev.Label == "" {
			return fmt.Errorf("timeline.json: %s: missing label", ev.ID)
		}
		if _, dup := seen[ev.ID]; dup {
			return fmt.Errorf("timeline.json: duplicate id %s", ev.ID)
		}
		seen[ev.ID] = struct{}{}
	}
	sortTimeline(evs)
	out.Events = evs
	return nil
}

func loadEntities(path string, out *EntityCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*out = Defaults().Entities
			return nil
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("entities.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func sortTimeline(evs []TimelineEvent) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Year < evs[j].Year })
}

// Between returns the events whose year lies in [from, to], in timeline order.
func (c TimelineCatalog) Between(from, to int) []TimelineEvent {
	if to < from {
		return nil
	}
	lo := sort.Search(len(c.Events), func(i int) bool { return c.Events[i].Year >= from })
	var out []TimelineEvent
	for i := lo; i < len(c.Events) && c.Events[i].Year <= to; i++ {
		out = append(out, c.Events[i])
	}
	return out
}

func (c TimelineCatalog) ByID(id string) (TimelineEvent, bool) {
	for _, ev := range c.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return TimelineEvent{}, false
}
