// Package effects folds a generator response back into the save under the
// same invariants the rest of the core enforces: bounded attributes,
// non-negative resources, registered entities only, and a calendar that never
// runs backward.
package effects

import (
	"sort"
	"strconv"
	"strings"

	"chronicle.ai/internal/protocol"
	"chronicle.ai/internal/sim/catalogs"
	"chronicle.ai/internal/sim/registry"
	"chronicle.ai/internal/sim/state"
)

// EventLogger appends an event id to the save's log if it is not already
// there.
type EventLogger interface {
	LogEvent(sd *state.SaveData, id string) bool
}

type Applier struct {
	Registry *registry.Registry
	Timeline catalogs.TimelineCatalog
	Events   EventLogger
}

type Report struct {
	Applied  []string
	Unknown  []string
	Rejected []string
	Events   []string

	TimeAdvanced bool
	GameOver     bool
}

// Apply is a convenience wrapper for an Applier with only a registry.
func Apply(reg *registry.Registry, sd *state.SaveData, p protocol.Payload, resp *protocol.GeneratorResponse) Report {
	a := Applier{Registry: reg}
	return a.Apply(sd, p, resp)
}

func (a *Applier) Apply(sd *state.SaveData, p protocol.Payload, resp *protocol.GeneratorResponse) Report {
	var rep Report
	if sd == nil {
		return rep
	}
	sd.Normalize()

	if lr := p.LogicalResults; lr != nil {
		if sd.World.Time.Before(p.WorldState.Time) {
			sd.World.Time = p.WorldState.Time
			rep.TimeAdvanced = true
		}
		for _, wc := range lr.WorldChanges {
			a.applyWorldChange(sd, wc, &rep)
		}
		rep.GameOver = lr.GameOver
	}

	if resp != nil {
		if resp.Result != nil {
			for _, tag := range resp.Result.Effects {
				a.applyTag(sd, tag, &rep)
			}
		}
		if sc := resp.StateChanges; sc != nil {
			for _, tag := range sc.Player {
				a.applyTag(sd, tag, &rep)
			}
			if sc.World != nil {
				a.applyWorldPatch(sd, sc.World, &rep)
			}
		}
	}
	return rep
}

func (a *Applier) applyWorldChange(sd *state.SaveData, wc protocol.WorldChange, rep *Report) {
	sd.World.AddFlag(wc.Flag)
	if ev, ok := a.Timeline.ByID(wc.ID); ok && ev.Region != "" {
		if st := state.RegionStatus(ev.RegionStatus); st.Valid() {
			sd.World.RegionStatus[ev.Region] = st
		}
	}
	if a.logEvent(sd, wc.ID) {
		rep.Events = append(rep.Events, wc.ID)
	}
}

func (a *Applier) logEvent(sd *state.SaveData, id string) bool {
	if id == "" || sd.HasEvent(id) {
		return false
	}
	if a.Events != nil {
		a.Events.LogEvent(sd, id)
		return sd.HasEvent(id)
	}
	sd.EventLog = append(sd.EventLog, id)
	return true
}

func (a *Applier) applyWorldPatch(sd *state.SaveData, w *protocol.WorldPatch, rep *Report) {
	if w.Era != nil && *w.Era != "" {
		sd.World.Era = *w.Era
	}
	for _, f := range w.Flags {
		sd.World.AddFlag(f)
	}
	if w.Time != nil {
		t := w.Time.Normalize()
		if sd.World.Time.Before(t) {
			sd.World.Time = t
			rep.TimeAdvanced = true
		}
	}
	for region, st := range w.RegionStatus {
		if !st.Valid() || !a.Registry.Admits(registry.TypeRegion, region) {
			rep.Rejected = append(rep.Rejected, "region_status:"+region)
			continue
		}
		sd.World.RegionStatus[region] = st
	}
}

// applyTag handles one effect tag. Malformed or unknown tags are reported,
// never fatal.
func (a *Applier) applyTag(sd *state.SaveData, raw string, rep *Report) {
	tag := strings.TrimSpace(raw)
	kind, rest, _ := strings.Cut(tag, ":")
	ok := false
	switch kind {
	case "attr":
		if name, n, good := nameDelta(rest); good {
			sd.Player.Attrs[name] = clamp(sd.Player.Attrs[name]+n, 0, 100)
			ok = true
		}
	case "res":
		if name, n, good := nameDelta(rest); good {
			sd.Player.Resources[name] = max(sd.Player.Resources[name]+n, 0)
			ok = true
		}
	case "legend":
		if n, err := strconv.Atoi(rest); err == nil {
			sd.Player.Legend += n
			ok = true
		}
	case "rep":
		if n, err := strconv.Atoi(rest); err == nil {
			sd.Player.Reputation += n
			ok = true
		}
	case "tag":
		ok = applyPlayerTag(&sd.Player, rest)
	case "loc":
		region, scene, _ := strings.Cut(rest, "/")
		if region == "" {
			break
		}
		if !a.Registry.Admits(registry.TypeRegion, region) {
			rep.Rejected = append(rep.Rejected, tag)
			return
		}
		sd.Player.Location = state.Location{Region: region, Scene: scene}
		ok = true
	case "flag":
		if rest != "" {
			sd.World.AddFlag(rest)
			ok = true
		}
	case "npc":
		switch a.applyNPC(sd, rest) {
		case npcApplied:
			ok = true
		case npcRejected:
			rep.Rejected = append(rep.Rejected, tag)
			return
		}
	}
	if ok {
		rep.Applied = append(rep.Applied, tag)
	} else {
		rep.Unknown = append(rep.Unknown, tag)
	}
}

type npcOutcome int

const (
	npcMalformed npcOutcome = iota
	npcApplied
	npcRejected
)

func (a *Applier) applyNPC(sd *state.SaveData, rest string) npcOutcome {
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return npcMalformed
	}
	id, field, val := parts[0], parts[1], parts[2]
	if !a.Registry.Admits(registry.TypeNPC, id) {
		return npcRejected
	}
	npc := sd.NPC(id)
	if npc == nil {
		return npcRejected
	}
	switch field {
	case "trust":
		n, err := strconv.Atoi(val)
		if err != nil {
			return npcMalformed
		}
		npc.Trust = clamp(npc.Trust+n, state.MinTrust, state.MaxTrust)
		return npcApplied
	case "stance":
		st := state.Stance(val)
		if !st.Valid() {
			return npcMalformed
		}
		npc.Stance = st
		return npcApplied
	}
	return npcMalformed
}

func applyPlayerTag(p *state.PlayerState, rest string) bool {
	if len(rest) < 2 {
		return false
	}
	op, name := rest[0], rest[1:]
	switch op {
	case '+':
		for _, t := range p.Tags {
			if t == name {
				return true
			}
		}
		p.Tags = append(p.Tags, name)
		sort.Strings(p.Tags)
		return true
	case '-':
		out := p.Tags[:0]
		for _, t := range p.Tags {
			if t != name {
				out = append(out, t)
			}
		}
		p.Tags = out
		return true
	}
	return false
}

func nameDelta(s string) (string, int, bool) {
	name, num, found := strings.Cut(s, ":")
	if !found || name == "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, false
	}
	return name, n, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
