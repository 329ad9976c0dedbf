package catalogs

var defaultTimeline = []TimelineEvent{
	{ID: "yellow_turban_rising", Year: 184, Label: "黄巾起义", EffectHint: "各地流民四起，官军疲于奔命", Flag: "yellow_turban_rising", Region: "julu", RegionStatus: "war"},
	{ID: "he_jin_killed", Year: 189, Label: "何进被杀", EffectHint: "宦官与外戚同归于尽，洛阳大乱", Flag: "he_jin_killed", Region: "luoyang", RegionStatus: "unrest"},
	{ID: "dongzhuo_enters_luoyang", Year: 189, Label: "董卓进京", EffectHint: "西凉军控制朝廷，废立天子", Flag: "dongzhuo_in_power", Region: "luoyang", RegionStatus: "occupied"},
	{ID: "anti_dong_coalition", Year: 190, Label: "关东诸侯讨董", EffectHint: "诸侯会盟酸枣，洛阳被焚，迁都长安", Flag: "coalition_formed", Region: "luoyang", RegionStatus: "ruined"},
	{ID: "dongzhuo_killed", Year: 192, Label: "董卓伏诛", EffectHint: "王允、吕布诛董，李傕郭汜随即作乱", Flag: "dongzhuo_dead"},
	{ID: "emperor_to_xu", Year: 196, Label: "迁都许昌", EffectHint: "曹操奉天子以令不臣", Flag: "emperor_in_xu"},
	{ID: "battle_of_guandu", Year: 200, Label: "官渡之战", EffectHint: "曹操以少胜多，河北格局逆转", Flag: "guandu_fought"},
	{ID: "battle_of_red_cliffs", Year: 208, Label: "赤壁之战", EffectHint: "孙刘联军火攻曹军，天下三分之势初成", Flag: "red_cliffs_fought", Region: "jingzhou", RegionStatus: "war"},
	{ID: "liubei_takes_yi", Year: 214, Label: "刘备入主益州", EffectHint: "刘璋出降，蜀地易主", Flag: "liubei_in_yi", Region: "yizhou", RegionStatus: "occupied"},
	{ID: "guanyu_falls", Year: 219, Label: "关羽败走麦城", EffectHint: "吕蒙白衣渡江，荆州易手", Flag: "guanyu_dead", Region: "jingzhou", RegionStatus: "occupied"},
	{ID: "wei_founded", Year: 220, Label: "曹丕代汉", EffectHint: "汉献帝禅让，魏国建立", Flag: "han_ended"},
	{ID: "shu_founded", Year: 221, Label: "刘备称帝", EffectHint: "蜀汉建立，誓为关羽复仇", Flag: "shu_founded"},
	{ID: "battle_of_yiling", Year: 222, Label: "夷陵之战", EffectHint: "陆逊火烧连营，蜀汉元气大伤", Flag: "yiling_fought"},
	{ID: "zhuge_dies", Year: 234, Label: "诸葛亮病逝五丈原", EffectHint: "北伐中止，蜀军退守汉中", Flag: "zhuge_dead"},
	{ID: "shu_falls", Year: 263, Label: "蜀汉灭亡", EffectHint: "邓艾偷渡阴平，刘禅出降", Flag: "shu_fallen", Region: "yizhou", RegionStatus: "occupied"},
	{ID: "jin_founded", Year: 265, Label: "司马炎代魏", EffectHint: "晋朝建立，曹魏终结", Flag: "jin_founded"},
	{ID: "wu_falls", Year: 280, Label: "东吴灭亡", EffectHint: "晋军顺流而下，天下归于一统", Flag: "wu_fallen", Region: "jiangdong", RegionStatus: "occupied"},
}

var defaultEntities = EntityCatalog{
	NPCs:    []string{"caocao", "liubei", "guanyu", "zhangjiao", "xunyu", "sunjian", "dongzhuo", "lubu", "zhugeliang"},
	Regions: []string{"yingchuan", "luoyang", "julu", "xuzhou", "jingzhou", "yizhou", "jiangdong", "changan", "xuchang"},
	Items:   []string{"sword", "horse", "scroll", "medicine", "grain"},
}
