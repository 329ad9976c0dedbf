// Package state holds the persisted game aggregate and the value types it is
// built from. Field names and nesting are the save-file compatibility
// contract; change them only together with SchemaVersion.
package state

const SchemaVersion = "1.0"

// MaxDialogueHistory bounds SaveData.DialogueHistory after every save and
// every in-memory append.
const MaxDialogueHistory = 100

type Location struct {
	Region string `json:"region"`
	Scene  string `json:"scene"`
}

type AspirationGoal string

const (
	GoalConquest AspirationGoal = "conquest"
	GoalWealth   AspirationGoal = "wealth"
	GoalVirtue   AspirationGoal = "virtue"
	GoalScholar  AspirationGoal = "scholar"
	GoalFreedom  AspirationGoal = "freedom"
)

func (g AspirationGoal) Valid() bool {
	switch g {
	case GoalConquest, GoalWealth, GoalVirtue, GoalScholar, GoalFreedom:
		return true
	}
	return false
}

type Aspiration struct {
	Goal AspirationGoal `json:"goal"`
	Text string         `json:"text,omitempty"`
}

type PlayerState struct {
	ID         string         `json:"id"`
	Attrs      map[string]int `json:"attrs"`
	Legend     int            `json:"legend"`
	Tags       []string       `json:"tags"`
	Reputation int            `json:"reputation"`
	Resources  map[string]int `json:"resources"`
	Location   Location       `json:"location"`
	Aspiration *Aspiration    `json:"aspiration,omitempty"`
}

// Well-known attribute and resource keys.
const (
	AttrHealth = "health"
	AttrHunger = "hunger"

	ResGold   = "gold"
	ResFood   = "food"
	ResTroops = "troops"
)

type RegionStatus string

const (
	RegionStable   RegionStatus = "stable"
	RegionUnrest   RegionStatus = "unrest"
	RegionWar      RegionStatus = "war"
	RegionRuined   RegionStatus = "ruined"
	RegionOccupied RegionStatus = "occupied"
)

func (s RegionStatus) Valid() bool {
	switch s {
	case RegionStable, RegionUnrest, RegionWar, RegionRuined, RegionOccupied:
		return true
	}
	return false
}

type WorldState struct {
	Era          string                  `json:"era"`
	Flags        []string                `json:"flags"`
	Time         GameTime                `json:"time"`
	RegionStatus map[string]RegionStatus `json:"region_status"`
}

// HasFlag reports whether flag is already recorded.
func (w *WorldState) HasFlag(flag string) bool {
	for _, f := range w.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends flag unless present. Insertion order is kept for recency.
func (w *WorldState) AddFlag(flag string) bool {
	if flag == "" || w.HasFlag(flag) {
		return false
	}
	w.Flags = append(w.Flags, flag)
	return true
}

type Stance string

const (
	StanceHostile  Stance = "hostile"
	StanceNeutral  Stance = "neutral"
	StanceFriendly Stance = "friendly"
)

func (s Stance) Valid() bool {
	return s == StanceHostile || s == StanceNeutral || s == StanceFriendly
}

const (
	MinTrust = -100
	MaxTrust = 100
)

type NPCState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stance   Stance `json:"stance"`
	Trust    int    `json:"trust"`
	Location string `json:"location"`
}

// EntityID lets NPCs pass through the entity registry filter.
func (n NPCState) EntityID() string { return n.ID }

type Meta struct {
	Version      string `json:"version"`
	CreatedAt    int64  `json:"created_at"`
	LastSaved    int64  `json:"last_saved"`
	LastAutoSave *int64 `json:"last_auto_save,omitempty"`
	PlayerID     string `json:"player_id"`
	SaveName     string `json:"save_name"`
	SaveSlot     int    `json:"save_slot"`
}

type Progress struct {
	TotalTurns    int    `json:"total_turns"`
	LastEventID   string `json:"last_event_id,omitempty"`
	LastEventTime int64  `json:"last_event_time,omitempty"`
}

type SaveData struct {
	Meta            Meta        `json:"meta"`
	Player          PlayerState `json:"player"`
	World           WorldState  `json:"world"`
	NPCs            []NPCState  `json:"npcs"`
	EventLog        []string    `json:"event_log"`
	DialogueHistory []string    `json:"dialogue_history"`
	Progress        Progress    `json:"progress"`
}

// HasEvent reports whether id is already in the event log.
func (sd *SaveData) HasEvent(id string) bool {
	for _, e := range sd.EventLog {
		if e == id {
			return true
		}
	}
	return false
}

// NPC returns a pointer into sd.NPCs for id, or nil.
func (sd *SaveData) NPC(id string) *NPCState {
	for i := range sd.NPCs {
		if sd.NPCs[i].ID == id {
			return &sd.NPCs[i]
		}
	}
	return nil
}

// TrimDialogue drops the oldest history entries so at most max remain.
// It returns the number of dropped lines.
func (sd *SaveData) TrimDialogue(max int) int {
	if max < 0 {
		max = 0
	}
	n := len(sd.DialogueHistory)
	if n <= max {
		return 0
	}
	drop := n - max
	kept := make([]string, max)
	copy(kept, sd.DialogueHistory[drop:])
	sd.DialogueHistory = kept
	return drop
}

// Normalize replaces nil maps and slices so a decoded record behaves like a
// freshly created one.
func (sd *SaveData) Normalize() {
	if sd.Player.Attrs == nil {
		sd.Player.Attrs = map[string]int{}
	}
	if sd.Player.Resources == nil {
		sd.Player.Resources = map[string]int{}
	}
	if sd.Player.Tags == nil {
		sd.Player.Tags = []string{}
	}
	if sd.World.Flags == nil {
		sd.World.Flags = []string{}
	}
	if sd.World.RegionStatus == nil {
		sd.World.RegionStatus = map[string]RegionStatus{}
	}
	if sd.NPCs == nil {
		sd.NPCs = []NPCState{}
	}
	if sd.EventLog == nil {
		sd.EventLog = []string{}
	}
	if sd.DialogueHistory == nil {
		sd.DialogueHistory = []string{}
	}
}
