package game

import (
	"time"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
)

// Read views never expose hidden values to a seat that may not see them.

type PlayerView struct {
	ID        string        `json:"id"`
	AccountID string        `json:"account_id"`
	JoinOrder int           `json:"join_order"`
	Color     catalog.Color `json:"color,omitempty"`
	IsHost    bool          `json:"is_host"`
	Locked    bool          `json:"locked"`
	Online    bool          `json:"online"`
}

type PlayersView struct {
	GameID      string            `json:"game_id"`
	Code        string            `json:"code"`
	Status      models.GameStatus `json:"status"`
	PlayerCount int               `json:"player_count"`
	Players     []PlayerView      `json:"players"`
}

// ViewPlayers lists the seats in join order.
func (s *State) ViewPlayers(account string) (PlayersView, error) {
	if _, err := s.requireSeat(account); err != nil {
		return PlayersView{}, err
	}
	out := PlayersView{GameID: s.Game.ID, Code: s.Game.Code, Status: s.Game.Status, PlayerCount: s.Game.PlayerCount}
	for _, p := range s.Players {
		out.Players = append(out.Players, PlayerView{
			ID: p.ID, AccountID: p.AccountID, JoinOrder: p.JoinOrder, Color: p.Color,
			IsHost: p.IsHost, Locked: p.Locked, Online: p.Online,
		})
	}
	return out, nil
}

type SkillUsage struct {
	Skill   catalog.Skill `json:"skill"`
	Quota   int           `json:"quota"`
	Used    int           `json:"used"`
	PerGame bool          `json:"per_game,omitempty"`
}

type MeView struct {
	PlayerID           string        `json:"player_id"`
	Role               catalog.Role  `json:"role,omitempty"`
	Camp               catalog.Camp  `json:"camp,omitempty"`
	Color              catalog.Color `json:"color,omitempty"`
	Skills             []SkillUsage  `json:"skills,omitempty"`
	NaturalBlockRound  int           `json:"natural_block_round,omitempty"`
	Disabled           bool          `json:"disabled"`
	PermanentlyBlocked bool          `json:"permanently_blocked"`
}

// ViewMe shows the caller's own role and skill usage this round.
func (s *State) ViewMe(account string) (MeView, error) {
	p, err := s.requireSeat(account)
	if err != nil {
		return MeView{}, err
	}
	out := MeView{
		PlayerID:           p.ID,
		Role:               p.Role,
		Color:              p.Color,
		NaturalBlockRound:  p.NaturalBlockRound,
		Disabled:           !p.CanAct,
		PermanentlyBlocked: p.PermanentlyBlocked,
	}
	def, ok := catalog.Lookup(p.Role)
	if !ok {
		return out, nil
	}
	out.Camp = def.Camp
	round := 0
	if r := s.CurrentRound(); r != nil {
		round = r.Number
	}
	for _, skill := range catalog.Skills {
		if !def.Can(skill) {
			continue
		}
		out.Skills = append(out.Skills, SkillUsage{
			Skill:   skill,
			Quota:   def.Quota(skill),
			Used:    s.usageOf(p.ID, skill, round),
			PerGame: def.PerGame[skill],
		})
	}
	return out, nil
}

type RoundView struct {
	Number          int               `json:"number"`
	Phase           models.RoundPhase `json:"phase"`
	CurrentPlayerID string            `json:"current_player_id,omitempty"`
	ActionOrder     []string          `json:"action_order"`
	StartedAt       time.Time         `json:"started_at"`
	Score           int               `json:"score"`
}

// ViewRound shows the current round.
func (s *State) ViewRound(account string) (RoundView, error) {
	if _, err := s.requireSeat(account); err != nil {
		return RoundView{}, err
	}
	r := s.CurrentRound()
	if r == nil {
		return RoundView{}, apperr.New(apperr.CodeStateConflict, "the game has not started")
	}
	out := RoundView{Number: r.Number, Phase: r.Phase, ActionOrder: append([]string{}, r.ActionOrder...), StartedAt: r.StartedAt, Score: s.Game.Score}
	if r.Phase == models.PhaseAction {
		out.CurrentPlayerID = r.Current()
	}
	return out, nil
}

type ArtifactView struct {
	ID       string           `json:"id"`
	Round    int              `json:"round"`
	Category catalog.Category `json:"category"`
	// Blocked is only shown to the role that places blocks.
	Blocked *bool `json:"blocked,omitempty"`
	Votes   *int  `json:"votes,omitempty"`
	Rank    *int  `json:"rank,omitempty"`
}

// ViewArtifacts lists the artifacts of round n, or the current round when n
// is zero.
func (s *State) ViewArtifacts(account string, n int) ([]ArtifactView, error) {
	p, err := s.requireSeat(account)
	if err != nil {
		return nil, err
	}
	cur := s.CurrentRound()
	if cur == nil {
		return nil, apperr.New(apperr.CodeStateConflict, "the game has not started")
	}
	if n == 0 {
		n = cur.Number
	}
	if n < 1 || n > cur.Number {
		return nil, apperr.Newf(apperr.CodeValidation, "round %d is not available", n)
	}
	r := s.Rounds[n-1]
	voted := r.Phase != models.PhaseAction && r.Phase != models.PhaseDiscussion && r.Phase != models.PhaseVoting

	var out []ArtifactView
	for _, a := range s.RoundArtifacts(n) {
		v := ArtifactView{ID: a.ID, Round: a.Round, Category: a.Category}
		if p.Role == catalog.LaoChaofeng {
			blocked := a.Blocked
			v.Blocked = &blocked
		}
		if voted {
			votes, rank := a.VoteCount, a.VoteRank
			v.Votes = &votes
			v.Rank = &rank
		}
		out = append(out, v)
	}
	return out, nil
}

type Teammate struct {
	PlayerID string       `json:"player_id"`
	Role     catalog.Role `json:"role"`
}

// ViewTeammates lists the hidden allies the caller's role may see.
func (s *State) ViewTeammates(account string) ([]Teammate, error) {
	p, err := s.requireSeat(account)
	if err != nil {
		return nil, err
	}
	out := []Teammate{}
	for _, role := range catalog.Allies(p.Role) {
		if q := s.seatWithRole(role); q != nil {
			out = append(out, Teammate{PlayerID: q.ID, Role: role})
		}
	}
	return out, nil
}

type HistoryEntry struct {
	Round     int               `json:"round"`
	Seq       int               `json:"seq"`
	PlayerID  string            `json:"player_id"`
	Kind      models.ActionKind `json:"kind"`
	Payload   models.Payload    `json:"payload,omitempty"`
	Succeeded bool              `json:"succeeded"`
}

// ViewHistory returns the caller's own actions and only the turn hand-offs
// of everyone else. An attacker never learns who was disabled alongside the
// target.
func (s *State) ViewHistory(account string) ([]HistoryEntry, error) {
	p, err := s.requireSeat(account)
	if err != nil {
		return nil, err
	}
	out := []HistoryEntry{}
	for _, a := range s.Actions {
		if a.PlayerID != p.ID && a.Kind != models.ActionAssignNext {
			continue
		}
		payload := a.Payload
		if v, ok := payload.(models.Attack); ok {
			payload = models.Attack{TargetID: v.TargetID, LandsInRound: v.LandsInRound}
		}
		out = append(out, HistoryEntry{
			Round: a.Round, Seq: a.Seq, PlayerID: a.PlayerID, Kind: a.Kind,
			Payload: payload, Succeeded: models.Succeeded(payload),
		})
	}
	return out, nil
}

type SettlementView struct {
	Status         models.GameStatus       `json:"status"`
	WinningCamp    catalog.Camp            `json:"winning_camp"`
	Score          int                     `json:"score"`
	Roles          map[string]catalog.Role `json:"roles"`
	Identification *IdentificationResult   `json:"identification,omitempty"`
}

// ViewSettlement summarizes a finished game.
func (s *State) ViewSettlement(account string) (SettlementView, error) {
	if _, err := s.requireSeat(account); err != nil {
		return SettlementView{}, err
	}
	if s.Game.Status != models.StatusFinished {
		return SettlementView{}, apperr.New(apperr.CodeStateConflict, "the game has not finished")
	}
	out := SettlementView{
		Status:      s.Game.Status,
		WinningCamp: s.Game.WinningCamp,
		Score:       s.Game.Score,
		Roles:       make(map[string]catalog.Role, len(s.Players)),
	}
	for _, p := range s.Players {
		out.Roles[p.ID] = p.Role
	}
	if s.voteScore() < catalog.WinThreshold {
		res := s.ScoreIdentification()
		out.Identification = &res
	}
	return out, nil
}
