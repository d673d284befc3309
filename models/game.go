// models/game.go
package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"

	"github.com/wfunc/relicroom/catalog"
)

// GameStatus is the room-level lifecycle status.
type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusSelecting  GameStatus = "selecting"
	StatusPlaying    GameStatus = "playing"
	StatusFinished   GameStatus = "finished"
	StatusTerminated GameStatus = "terminated"
)

// Active reports whether the room still accepts commands that change play.
func (s GameStatus) Active() bool {
	return s == StatusWaiting || s == StatusSelecting || s == StatusPlaying
}

// Game is one room.
type Game struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	Code         string       `gorm:"size:12;not null;index" json:"code"`
	PasswordHash string       `gorm:"size:255" json:"-"`
	HostPlayerID string       `gorm:"size:36" json:"host_player_id"`
	Status       GameStatus   `gorm:"size:16;not null;index" json:"status"`
	PlayerCount  int          `gorm:"not null;default:0" json:"player_count"`
	Score        int          `gorm:"not null;default:0" json:"-"`
	WinningCamp  catalog.Camp `gorm:"size:8" json:"winning_camp,omitempty"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Player is one seat in a game.
type Player struct {
	ID                 string                   `gorm:"primaryKey;size:36" json:"id"`
	GameID             string                   `gorm:"size:36;not null;uniqueIndex:idx_players_game_account" json:"game_id"`
	AccountID          string                   `gorm:"size:64;not null;uniqueIndex:idx_players_game_account" json:"account_id"`
	JoinOrder          int                      `gorm:"not null" json:"join_order"`
	Role               catalog.Role             `gorm:"size:32" json:"-"`
	Color              catalog.Color            `gorm:"size:16" json:"color,omitempty"`
	IsHost             bool                     `gorm:"not null;default:false" json:"is_host"`
	Locked             bool                     `gorm:"not null;default:false" json:"locked"`
	Online             bool                     `gorm:"not null;default:true" json:"online"`
	CanAct             bool                     `gorm:"not null;default:true" json:"-"`
	NaturalBlockRound  int                      `gorm:"not null;default:0" json:"-"`
	AttackedRounds     datatypes.JSONSlice[int] `json:"-"`
	PermanentlyBlocked bool                     `gorm:"not null;default:false" json:"-"`
	JoinedAt           time.Time                `json:"joined_at"`
}

func (p *Player) Clone() *Player {
	out := *p
	out.AttackedRounds = slices.Clone(p.AttackedRounds)
	return &out
}

// AttackedIn reports whether an attack lands on the player in round.
func (p *Player) AttackedIn(round int) bool {
	return slices.Contains(p.AttackedRounds, round)
}

// NaturallyBlockedIn reports whether round is the player's natural block round.
func (p *Player) NaturallyBlockedIn(round int) bool {
	return p.NaturalBlockRound != 0 && p.NaturalBlockRound == round
}

// RoleDefinition is the persisted copy of a catalog role.
type RoleDefinition struct {
	Name              catalog.Role `gorm:"primaryKey;size:32"`
	Camp              catalog.Camp `gorm:"size:8;not null"`
	InspectArtifact   int          `gorm:"not null;default:0"`
	InspectPlayer     int          `gorm:"not null;default:0"`
	Block             int          `gorm:"not null;default:0"`
	Attack            int          `gorm:"not null;default:0"`
	Swap              int          `gorm:"not null;default:0"`
	SwapPerGame       bool         `gorm:"not null;default:false"`
	MinSeats          int          `gorm:"not null"`
	NaturallyBlocked  bool         `gorm:"not null;default:false"`
	PermanentOnAttack bool         `gorm:"not null;default:false"`
}

// RoleDefinitions converts the catalog into persistable rows.
func RoleDefinitions() []RoleDefinition {
	defs := catalog.Roles()
	out := make([]RoleDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, RoleDefinition{
			Name:              d.Name,
			Camp:              d.Camp,
			InspectArtifact:   d.Quota(catalog.SkillInspectArtifact),
			InspectPlayer:     d.Quota(catalog.SkillInspectPlayer),
			Block:             d.Quota(catalog.SkillBlock),
			Attack:            d.Quota(catalog.SkillAttack),
			Swap:              d.Quota(catalog.SkillSwap),
			SwapPerGame:       d.PerGame[catalog.SkillSwap],
			MinSeats:          d.MinSeats,
			NaturallyBlocked:  d.NaturallyBlocked,
			PermanentOnAttack: d.PermanentOnAttack,
		})
	}
	return out
}

// IdentificationVote holds one player's endgame accusations. Empty fields
// mean the player made no accusation for that question.
type IdentificationVote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GameID    string    `gorm:"size:36;not null;uniqueIndex:idx_ident_game_player" json:"game_id"`
	PlayerID  string    `gorm:"size:36;not null;uniqueIndex:idx_ident_game_player" json:"player_id"`
	Curator   string    `gorm:"size:36" json:"curator,omitempty"`
	Appraiser string    `gorm:"size:36" json:"appraiser,omitempty"`
	Companion string    `gorm:"size:36" json:"companion,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
