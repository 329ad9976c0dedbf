package state

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func (p PlayerState) Clone() PlayerState {
	out := p
	out.Attrs = cloneMap(p.Attrs)
	out.Resources = cloneMap(p.Resources)
	out.Tags = cloneSlice(p.Tags)
	if p.Aspiration != nil {
		a := *p.Aspiration
		out.Aspiration = &a
	}
	return out
}

func (w WorldState) Clone() WorldState {
	out := w
	out.Flags = cloneSlice(w.Flags)
	out.RegionStatus = cloneMap(w.RegionStatus)
	return out
}

func CloneNPCs(in []NPCState) []NPCState { return cloneSlice(in) }

func (sd *SaveData) Clone() *SaveData {
	if sd == nil {
		return nil
	}
	out := *sd
	if sd.Meta.LastAutoSave != nil {
		v := *sd.Meta.LastAutoSave
		out.Meta.LastAutoSave = &v
	}
	out.Player = sd.Player.Clone()
	out.World = sd.World.Clone()
	out.NPCs = cloneSlice(sd.NPCs)
	out.EventLog = cloneSlice(sd.EventLog)
	out.DialogueHistory = cloneSlice(sd.DialogueHistory)
	return &out
}
