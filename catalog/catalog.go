// Package catalog holds the static role, skill and piece tables. Nothing in
// it is mutated after init.
package catalog

import "slices"

const (
	MinSeats          = 6
	MaxSeats          = 8
	Rounds            = 3
	ArtifactsPerRound = 4
	GenuinePerRound   = 2
	// WinThreshold is the score the good camp needs to win. It is also the
	// maximum reachable from artifact votes alone.
	WinThreshold = 6
)

type Camp string

const (
	CampGood Camp = "good"
	CampBad  Camp = "bad"
)

type Role string

const (
	XuYuan      Role = "xu_yuan"
	FangZhen    Role = "fang_zhen"
	HuangYanyan Role = "huang_yanyan"
	MuHuJiaNai  Role = "muhu_jianai"
	JiYunfu     Role = "ji_yunfu"
	LaoChaofeng Role = "lao_chaofeng"
	YaoBuran    Role = "yao_buran"
	ZhengGuoqu  Role = "zheng_guoqu"
)

type Skill string

const (
	SkillInspectArtifact Skill = "inspect_artifact"
	SkillInspectPlayer   Skill = "inspect_player"
	SkillAttack          Skill = "attack"
	SkillBlock           Skill = "block"
	SkillSwap            Skill = "swap"
)

// Skills lists every skill in a stable order.
var Skills = []Skill{SkillInspectArtifact, SkillInspectPlayer, SkillAttack, SkillBlock, SkillSwap}

// IsInspection reports whether failed attempts of the skill are still logged
// and charged against the quota.
func (s Skill) IsInspection() bool {
	return s == SkillInspectArtifact || s == SkillInspectPlayer
}

// RoleDef describes one role's camp and powers.
type RoleDef struct {
	Name Role
	Camp Camp
	// Quotas per round. Skills absent from the map are not available.
	Quotas map[Skill]int
	// PerGame marks skills whose quota spans the whole game.
	PerGame map[Skill]bool
	// MinSeats is the smallest table at which the role is in play.
	MinSeats int
	// NaturallyBlocked roles lose their inspection for one random round.
	NaturallyBlocked bool
	// PermanentOnAttack roles can never be inspected again once attacked.
	PermanentOnAttack bool
}

// Can reports whether the role has the skill at all.
func (d RoleDef) Can(skill Skill) bool {
	return d.Quotas[skill] > 0
}

// Quota returns the usage limit for skill (per round unless PerGame).
func (d RoleDef) Quota(skill Skill) int {
	return d.Quotas[skill]
}

var roles = []RoleDef{
	{Name: XuYuan, Camp: CampGood, MinSeats: 6, Quotas: map[Skill]int{SkillInspectArtifact: 2}},
	{Name: FangZhen, Camp: CampGood, MinSeats: 6, Quotas: map[Skill]int{SkillInspectPlayer: 1}},
	{Name: HuangYanyan, Camp: CampGood, MinSeats: 6, NaturallyBlocked: true, Quotas: map[Skill]int{SkillInspectArtifact: 1}},
	{Name: MuHuJiaNai, Camp: CampGood, MinSeats: 7, NaturallyBlocked: true, Quotas: map[Skill]int{SkillInspectArtifact: 1}},
	{Name: JiYunfu, Camp: CampGood, MinSeats: 6, PermanentOnAttack: true, Quotas: map[Skill]int{SkillInspectArtifact: 1}},
	{Name: LaoChaofeng, Camp: CampBad, MinSeats: 6, Quotas: map[Skill]int{SkillInspectArtifact: 1, SkillBlock: 1}},
	{Name: YaoBuran, Camp: CampBad, MinSeats: 6, Quotas: map[Skill]int{SkillInspectArtifact: 1, SkillAttack: 1}},
	{Name: ZhengGuoqu, Camp: CampBad, MinSeats: 8, PerGame: map[Skill]bool{SkillSwap: true}, Quotas: map[Skill]int{SkillInspectArtifact: 1, SkillSwap: 1}},
}

// attackPartners: attacking the key also disables the value.
var attackPartners = map[Role]Role{
	XuYuan: FangZhen,
}

// allies lists the hidden teammates a role is allowed to see.
var allies = map[Role][]Role{
	LaoChaofeng: {YaoBuran},
	YaoBuran:    {LaoChaofeng},
}

// Roles returns every role definition in catalog order.
func Roles() []RoleDef {
	return slices.Clone(roles)
}

// Lookup finds a role definition by name.
func Lookup(name Role) (RoleDef, bool) {
	for _, r := range roles {
		if r.Name == name {
			return r, true
		}
	}
	return RoleDef{}, false
}

// Available returns the roles in play at a table of the given size.
func Available(seats int) []Role {
	var out []Role
	for _, r := range roles {
		if seats >= r.MinSeats {
			out = append(out, r.Name)
		}
	}
	return out
}

// AvailableFor reports whether role may be chosen at a table of the given size.
func AvailableFor(role Role, seats int) bool {
	d, ok := Lookup(role)
	return ok && seats >= d.MinSeats
}

// AttackPartner returns the role that is disabled together with role.
func AttackPartner(role Role) (Role, bool) {
	p, ok := attackPartners[role]
	return p, ok
}

// Allies returns the roles visible to role as teammates.
func Allies(role Role) []Role {
	return allies[role]
}

// CampOf returns the camp of role, or "" for an unknown role.
func CampOf(role Role) Camp {
	d, _ := Lookup(role)
	return d.Camp
}
