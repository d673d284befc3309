package room

import (
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/game"
)

// Command mutates a room. Apply runs on a private copy of the state inside
// the room's loop.
type Command interface {
	Name() string
	Apply(s *game.State, ch *game.Changes) (any, error)
}

// Query reads a room without changing it.
type Query interface {
	Name() string
	Read(s *game.State) (any, error)
}

// QueryFunc adapts a function to Query.
type QueryFunc func(s *game.State) (any, error)

func (QueryFunc) Name() string                       { return "query" }
func (f QueryFunc) Read(s *game.State) (any, error) { return f(s) }

// Seat describes the caller's seat after a join.
type Seat struct {
	GameID   string `json:"game_id"`
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}

type Join struct {
	Account  string `json:"-"`
	Password string `json:"password"`
}

func (Join) Name() string { return "join" }
func (c Join) Apply(s *game.State, ch *game.Changes) (any, error) {
	p, err := s.Join(ch, c.Account, c.Password)
	if err != nil {
		return nil, err
	}
	return Seat{GameID: s.Game.ID, Code: s.Game.Code, PlayerID: p.ID}, nil
}

type Leave struct {
	Account string `json:"-"`
}

func (Leave) Name() string { return "leave" }
func (c Leave) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.Leave(ch, c.Account)
}

type Kick struct {
	Account  string `json:"-"`
	PlayerID string `json:"player_id"`
}

func (Kick) Name() string { return "kick" }
func (c Kick) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.Kick(ch, c.Account, c.PlayerID)
}

type SetOnline struct {
	Account string
	Online  bool
}

func (SetOnline) Name() string { return "set_online" }
func (c SetOnline) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.SetOnline(ch, c.Account, c.Online)
}

type StartSelection struct {
	Account string `json:"-"`
}

func (StartSelection) Name() string { return "start_selection" }
func (c StartSelection) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.StartSelection(ch, c.Account)
}

type LockRole struct {
	Account string        `json:"-"`
	Role    catalog.Role  `json:"role"`
	Color   catalog.Color `json:"color"`
}

type LockedRole struct {
	Role  catalog.Role  `json:"role"`
	Color catalog.Color `json:"color"`
}

func (LockRole) Name() string { return "lock_role" }
func (c LockRole) Apply(s *game.State, ch *game.Changes) (any, error) {
	if err := s.LockRole(ch, c.Account, c.Role, c.Color); err != nil {
		return nil, err
	}
	return LockedRole{Role: c.Role, Color: c.Color}, nil
}

type UnlockRole struct {
	Account string `json:"-"`
}

func (UnlockRole) Name() string { return "unlock_role" }
func (c UnlockRole) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.UnlockRole(ch, c.Account)
}

type StartGame struct {
	Account string `json:"-"`
}

func (StartGame) Name() string { return "start" }
func (c StartGame) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.StartGame(ch, c.Account)
}

type InspectArtifact struct {
	Account    string `json:"-"`
	ArtifactID string `json:"artifact_id"`
}

func (InspectArtifact) Name() string { return "identify_artifact" }
func (c InspectArtifact) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.InspectArtifact(ch, c.Account, c.ArtifactID)
}

type InspectPlayer struct {
	Account  string `json:"-"`
	TargetID string `json:"target_id"`
}

func (InspectPlayer) Name() string { return "identify_player" }
func (c InspectPlayer) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.InspectPlayer(ch, c.Account, c.TargetID)
}

type Attack struct {
	Account  string `json:"-"`
	TargetID string `json:"target_id"`
}

func (Attack) Name() string { return "attack_player" }
func (c Attack) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.Attack(ch, c.Account, c.TargetID)
}

type Block struct {
	Account    string `json:"-"`
	ArtifactID string `json:"artifact_id"`
}

func (Block) Name() string { return "block_artifact" }
func (c Block) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.Block(ch, c.Account, c.ArtifactID)
}

type Swap struct {
	Account string `json:"-"`
}

func (Swap) Name() string { return "swap_artifacts" }
func (c Swap) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.Swap(ch, c.Account)
}

type AssignNext struct {
	Account  string `json:"-"`
	PlayerID string `json:"player_id"`
}

func (AssignNext) Name() string { return "assign_next" }
func (c AssignNext) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.AssignNext(ch, c.Account, c.PlayerID)
}

type StartDiscussion struct {
	Account string `json:"-"`
}

func (StartDiscussion) Name() string { return "start_discussion" }
func (c StartDiscussion) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.StartDiscussion(ch, c.Account)
}

type StartVoting struct {
	Account string `json:"-"`
}

func (StartVoting) Name() string { return "start_voting" }
func (c StartVoting) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.StartVoting(ch, c.Account)
}

type SubmitVotes struct {
	Account string         `json:"-"`
	Votes   map[string]int `json:"votes"`
}

func (SubmitVotes) Name() string { return "submit_votes" }
func (c SubmitVotes) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.SubmitVotes(ch, c.Account, c.Votes)
}

type NextRound struct {
	Account string `json:"-"`
}

func (NextRound) Name() string { return "next_round" }
func (c NextRound) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.NextRound(ch, c.Account)
}

type CalculateSettlement struct {
	Account string `json:"-"`
}

func (CalculateSettlement) Name() string { return "calculate_settlement" }
func (c CalculateSettlement) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.CalculateSettlement(ch, c.Account)
}

type SubmitIdentification struct {
	Account string `json:"-"`
	game.Accusations
}

func (SubmitIdentification) Name() string { return "submit_identification" }
func (c SubmitIdentification) Apply(s *game.State, ch *game.Changes) (any, error) {
	return nil, s.SubmitIdentification(ch, c.Account, c.Accusations)
}

type PublishIdentification struct {
	Account string `json:"-"`
}

func (PublishIdentification) Name() string { return "publish_identification" }
func (c PublishIdentification) Apply(s *game.State, ch *game.Changes) (any, error) {
	return s.PublishIdentification(ch, c.Account)
}

type ViewPlayers struct{ Account string }

func (ViewPlayers) Name() string                       { return "view_players" }
func (q ViewPlayers) Read(s *game.State) (any, error) { return s.ViewPlayers(q.Account) }

type ViewMe struct{ Account string }

func (ViewMe) Name() string                       { return "view_me" }
func (q ViewMe) Read(s *game.State) (any, error) { return s.ViewMe(q.Account) }

type ViewRound struct{ Account string }

func (ViewRound) Name() string                       { return "view_round" }
func (q ViewRound) Read(s *game.State) (any, error) { return s.ViewRound(q.Account) }

type ViewArtifacts struct {
	Account string `json:"-"`
	Round   int    `json:"round"`
}

func (ViewArtifacts) Name() string                       { return "view_artifacts" }
func (q ViewArtifacts) Read(s *game.State) (any, error) { return s.ViewArtifacts(q.Account, q.Round) }

type ViewTeammates struct{ Account string }

func (ViewTeammates) Name() string                       { return "view_teammates" }
func (q ViewTeammates) Read(s *game.State) (any, error) { return s.ViewTeammates(q.Account) }

type ViewHistory struct{ Account string }

func (ViewHistory) Name() string                       { return "view_history" }
func (q ViewHistory) Read(s *game.State) (any, error) { return s.ViewHistory(q.Account) }

type ViewSettlement struct{ Account string }

func (ViewSettlement) Name() string                       { return "view_settlement" }
func (q ViewSettlement) Read(s *game.State) (any, error) { return s.ViewSettlement(q.Account) }
