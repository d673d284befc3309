// models/action.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wfunc/relicroom/catalog"
)

type ActionKind string

const (
	ActionInspectArtifact ActionKind = "inspect_artifact"
	ActionInspectPlayer   ActionKind = "inspect_player"
	ActionAttack          ActionKind = "attack"
	ActionBlock           ActionKind = "block"
	ActionSwap            ActionKind = "swap"
	ActionAssignNext      ActionKind = "assign_next"
)

// FailReason explains why a logged inspection produced no answer.
type FailReason string

const (
	FailActorAttacked     FailReason = "actor_attacked"
	FailActorNaturalBlock FailReason = "actor_natural_block"
	FailArtifactBlocked   FailReason = "artifact_blocked"
	FailTargetPermanent   FailReason = "target_permanent_block"
	FailTargetAttacked    FailReason = "target_attacked"
	FailTargetNatural     FailReason = "target_natural_block"
)

// Payload is the closed set of action variants.
type Payload interface {
	Kind() ActionKind
	isPayload()
}

type InspectArtifact struct {
	ArtifactID string           `json:"artifact_id"`
	Category   catalog.Category `json:"category"`
	// Genuine is the reported value; nil when the attempt failed.
	Genuine *bool      `json:"genuine,omitempty"`
	Failure FailReason `json:"failure,omitempty"`
}

type InspectPlayer struct {
	TargetID string       `json:"target_id"`
	Camp     catalog.Camp `json:"camp,omitempty"`
	Failure  FailReason   `json:"failure,omitempty"`
}

type Attack struct {
	TargetID     string `json:"target_id"`
	LandsInRound int    `json:"lands_in_round"`
	// PartnerID is the seat disabled alongside the target, if any.
	PartnerID string `json:"partner_id,omitempty"`
}

type Block struct {
	ArtifactID string `json:"artifact_id"`
}

type Swap struct{}

type AssignNext struct {
	NextPlayerID string `json:"next_player_id"`
}

func (InspectArtifact) Kind() ActionKind { return ActionInspectArtifact }
func (InspectPlayer) Kind() ActionKind   { return ActionInspectPlayer }
func (Attack) Kind() ActionKind          { return ActionAttack }
func (Block) Kind() ActionKind           { return ActionBlock }
func (Swap) Kind() ActionKind            { return ActionSwap }
func (AssignNext) Kind() ActionKind      { return ActionAssignNext }

func (InspectArtifact) isPayload() {}
func (InspectPlayer) isPayload()   {}
func (Attack) isPayload()          {}
func (Block) isPayload()           {}
func (Swap) isPayload()            {}
func (AssignNext) isPayload()      {}

// Succeeded reports whether an inspection produced an answer. Other kinds
// always succeed once logged.
func Succeeded(p Payload) bool {
	switch v := p.(type) {
	case InspectArtifact:
		return v.Failure == ""
	case InspectPlayer:
		return v.Failure == ""
	default:
		return true
	}
}

// SkillOf maps an action kind to the skill it charges, if any.
func SkillOf(kind ActionKind) (catalog.Skill, bool) {
	switch kind {
	case ActionInspectArtifact:
		return catalog.SkillInspectArtifact, true
	case ActionInspectPlayer:
		return catalog.SkillInspectPlayer, true
	case ActionAttack:
		return catalog.SkillAttack, true
	case ActionBlock:
		return catalog.SkillBlock, true
	case ActionSwap:
		return catalog.SkillSwap, true
	}
	return "", false
}

var ErrUnknownAction = errors.New("unknown action kind")

// DecodePayload turns a stored kind and JSON body into its variant.
func DecodePayload(kind ActionKind, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case ActionInspectArtifact:
		var v InspectArtifact
		err = json.Unmarshal(data, &v)
		p = v
	case ActionInspectPlayer:
		var v InspectPlayer
		err = json.Unmarshal(data, &v)
		p = v
	case ActionAttack:
		var v Attack
		err = json.Unmarshal(data, &v)
		p = v
	case ActionBlock:
		var v Block
		err = json.Unmarshal(data, &v)
		p = v
	case ActionSwap:
		p = Swap{}
	case ActionAssignNext:
		var v AssignNext
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

// Action is one append-only turn log entry.
type Action struct {
	ID       string     `gorm:"primaryKey;size:36" json:"id"`
	GameID   string     `gorm:"size:36;not null;index" json:"game_id"`
	RoundID  string     `gorm:"size:36;not null;uniqueIndex:idx_actions_round_seq" json:"round_id"`
	Round    int        `gorm:"not null" json:"round"`
	PlayerID string     `gorm:"size:36;not null" json:"player_id"`
	Seq      int        `gorm:"not null;uniqueIndex:idx_actions_round_seq" json:"seq"`
	Kind     ActionKind `gorm:"size:24;not null" json:"kind"`
	// Data is the stored form of Payload.
	Data      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"-"`
	Payload   Payload        `gorm:"-" json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeSave encodes the payload variant into its JSON column.
func (a *Action) BeforeSave(tx *gorm.DB) error {
	if a.Payload == nil {
		return fmt.Errorf("action %s has no payload", a.ID)
	}
	data, err := json.Marshal(a.Payload)
	if err != nil {
		return err
	}
	a.Kind = a.Payload.Kind()
	a.Data = data
	return nil
}

// AfterFind decodes the stored payload once, at load time.
func (a *Action) AfterFind(tx *gorm.DB) error {
	p, err := DecodePayload(a.Kind, a.Data)
	if err != nil {
		return err
	}
	a.Payload = p
	return nil
}
