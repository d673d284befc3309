package game

import (
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

type EventKind string

const (
	EventPlayerJoined            EventKind = "player_joined"
	EventPlayerLeft              EventKind = "player_left"
	EventPlayerKicked            EventKind = "player_kicked"
	EventHostChanged             EventKind = "host_changed"
	EventPresenceChanged         EventKind = "presence_changed"
	EventSelectionStarted        EventKind = "selection_started"
	EventRoleLocked              EventKind = "role_locked"
	EventRoleUnlocked            EventKind = "role_unlocked"
	EventGameStarted             EventKind = "game_started"
	EventRoundStarted            EventKind = "round_started"
	EventTurnChanged             EventKind = "turn_changed"
	EventPhaseChanged            EventKind = "phase_changed"
	EventActionResolved          EventKind = "action_resolved"
	EventVotingCompleted         EventKind = "voting_completed"
	EventIdentificationOpened    EventKind = "identification_opened"
	EventIdentificationSubmitted EventKind = "identification_submitted"
	EventGameFinished            EventKind = "game_finished"
	EventForcedTermination       EventKind = "forced_termination"
)

// Event is a typed notification produced by a command. It is delivered only
// after the command's changes commit.
type Event struct {
	Kind EventKind `json:"kind"`
	// To restricts delivery to these account ids. Empty means every seated
	// member after the command.
	To      []string `json:"-"`
	Payload any      `json:"payload,omitempty"`
}

type PlayerJoined struct {
	PlayerID    string `json:"player_id"`
	AccountID   string `json:"account_id"`
	PlayerCount int    `json:"player_count"`
}

type PlayerLeft struct {
	PlayerID    string `json:"player_id"`
	AccountID   string `json:"account_id"`
	PlayerCount int    `json:"player_count"`
}

type HostChanged struct {
	PlayerID string `json:"player_id"`
}

type PresenceChanged struct {
	PlayerID string `json:"player_id"`
	Online   bool   `json:"online"`
}

type SelectionStarted struct {
	Roles []catalog.Role `json:"roles"`
}

// RoleLocked deliberately omits the role; only the locking seat learns it
// through its reply.
type RoleLocked struct {
	PlayerID string        `json:"player_id"`
	Color    catalog.Color `json:"color"`
}

type RoleUnlocked struct {
	PlayerID string `json:"player_id"`
}

type GameStarted struct {
	StartedAt string `json:"started_at"`
}

type RoundStarted struct {
	Round           int    `json:"round"`
	CurrentPlayerID string `json:"current_player_id,omitempty"`
}

type TurnChanged struct {
	Round            int    `json:"round"`
	CurrentPlayerID  string `json:"current_player_id"`
	PreviousPlayerID string `json:"previous_player_id,omitempty"`
}

type PhaseChanged struct {
	Round int               `json:"round"`
	Phase models.RoundPhase `json:"phase"`
}

// ActionResolved is sent privately to the acting player.
type ActionResolved struct {
	Round   int               `json:"round"`
	Kind    models.ActionKind `json:"kind"`
	Payload models.Payload    `json:"payload"`
}

type VotingCompleted struct {
	Round      int              `json:"round"`
	Ranking    []RankedArtifact `json:"ranking"`
	RoundScore int              `json:"round_score"`
	TotalScore int              `json:"total_score"`
}

type IdentificationOpened struct {
	Score int `json:"score"`
}

type IdentificationSubmitted struct {
	PlayerID string `json:"player_id"`
}

type GameFinished struct {
	WinningCamp    catalog.Camp            `json:"winning_camp"`
	Score          int                     `json:"score"`
	Identification *IdentificationResult   `json:"identification,omitempty"`
	Roles          map[string]catalog.Role `json:"roles"`
}

type ForcedTermination struct {
	Reason string `json:"reason"`
}
