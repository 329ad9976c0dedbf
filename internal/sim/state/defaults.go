package state

// StartYear is the first year of a new game (the Yellow Turban uprising).
const StartYear = 184

func DefaultPlayer() PlayerState {
	return PlayerState{
		Attrs: map[string]int{
			AttrHealth:     100,
			AttrHunger:     20,
			"strength":     50,
			"intelligence": 50,
			"charisma":     50,
		},
		Legend:     0,
		Tags:       []string{},
		Reputation: 0,
		Resources: map[string]int{
			ResGold:   100,
			ResFood:   50,
			ResTroops: 0,
		},
		Location: Location{Region: "yingchuan", Scene: "village"},
	}
}

func DefaultWorld() WorldState {
	return WorldState{
		Era:   "东汉末年",
		Flags: []string{"yellow_turban_rising"},
		Time:  GameTime{Year: StartYear, Month: 1, Day: 1},
		RegionStatus: map[string]RegionStatus{
			"yingchuan": RegionUnrest,
			"luoyang":   RegionStable,
			"julu":      RegionWar,
			"xuzhou":    RegionStable,
			"jingzhou":  RegionStable,
			"yizhou":    RegionStable,
			"jiangdong": RegionStable,
		},
	}
}

func DefaultNPCs() []NPCState {
	return []NPCState{
		{ID: "caocao", Name: "曹操", Stance: StanceNeutral, Trust: 0, Location: "luoyang"},
		{ID: "liubei", Name: "刘备", Stance: StanceFriendly, Trust: 10, Location: "xuzhou"},
		{ID: "guanyu", Name: "关羽", Stance: StanceNeutral, Trust: 0, Location: "xuzhou"},
		{ID: "zhangjiao", Name: "张角", Stance: StanceHostile, Trust: -20, Location: "julu"},
		{ID: "xunyu", Name: "荀彧", Stance: StanceFriendly, Trust: 15, Location: "yingchuan"},
	}
}
