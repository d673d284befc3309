package game

import (
	"fmt"

	"github.com/wfunc/relicroom/apperr"
	"github.com/wfunc/relicroom/catalog"
	"github.com/wfunc/relicroom/models"
	"github.com/wfunc/relicroom/state"
)

var statusTable = state.NewTable[models.GameStatus]().
	AddTransition(models.StatusWaiting, models.StatusSelecting, nil).
	AddTransition(models.StatusSelecting, models.StatusPlaying, nil).
	AddTransition(models.StatusSelecting, models.StatusTerminated, nil).
	AddTransition(models.StatusPlaying, models.StatusFinished, nil).
	AddTransition(models.StatusPlaying, models.StatusTerminated, nil)

func (s *State) setStatus(ch *Changes, to models.GameStatus) error {
	m := state.NewMachine(s.Game.Status, statusTable)
	if err := m.ChangeState(to); err != nil {
		return apperr.Wrap(err, apperr.CodeStateConflict, fmt.Sprintf("room is %s", s.Game.Status))
	}
	s.Game.Status = m.Current()
	ch.game()
	return nil
}

// GenerateCode draws a six-digit room code.
func GenerateCode(r Random) string {
	return fmt.Sprintf("%06d", r.IntN(1_000_000))
}

// NewGame builds a fresh waiting room with the host seated.
func NewGame(deps Deps, code, hostAccount, password string) (*State, *Changes, error) {
	if hostAccount == "" {
		return nil, nil, apperr.New(apperr.CodeValidation, "account is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, nil, apperr.Wrap(err, apperr.CodeInternal, "hash room password")
	}
	deps = deps.withDefaults()
	now := deps.Now()

	g := &models.Game{
		ID:           deps.NewID(),
		Code:         code,
		PasswordHash: hash,
		Status:       models.StatusWaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s := Restore(deps, g, nil, nil, nil, nil, nil)
	ch := &Changes{GameCreated: true}
	host := s.seat(ch, hostAccount)
	host.IsHost = true
	g.HostPlayerID = host.ID
	return s, ch, nil
}

func (s *State) seat(ch *Changes, account string) *models.Player {
	p := &models.Player{
		ID:        s.deps.NewID(),
		GameID:    s.Game.ID,
		AccountID: account,
		JoinOrder: s.nextJoinOrder(),
		Online:    true,
		CanAct:    true,
		JoinedAt:  s.now(),
	}
	s.Players = append(s.Players, p)
	s.Game.PlayerCount = len(s.Players)
	ch.PlayersAdded.Add(p.ID)
	return p
}

func (s *State) requireSeat(account string) (*models.Player, error) {
	p := s.Seat(account)
	if p == nil {
		return nil, apperr.New(apperr.CodeNotFound, "you are not seated in this room")
	}
	return p, nil
}

func (s *State) requireHost(account string) (*models.Player, error) {
	p, err := s.requireSeat(account)
	if err != nil {
		return nil, err
	}
	if !p.IsHost {
		return nil, apperr.New(apperr.CodeNotHost, "only the host can do that")
	}
	return p, nil
}

// Join seats account in a waiting room.
func (s *State) Join(ch *Changes, account, password string) (*models.Player, error) {
	if account == "" {
		return nil, apperr.New(apperr.CodeValidation, "account is required")
	}
	if s.Seat(account) != nil {
		return nil, apperr.New(apperr.CodeAlreadySeated, "you are already in this room")
	}
	if s.Game.Status != models.StatusWaiting {
		return nil, apperr.New(apperr.CodeStateConflict, "room is not accepting players")
	}
	if len(s.Players) >= catalog.MaxSeats {
		return nil, apperr.New(apperr.CodeCapacity, "room is full")
	}
	ok, err := checkPassword(s.Game.PasswordHash, password)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "check room password")
	}
	if !ok {
		return nil, apperr.New(apperr.CodePermission, "wrong room password")
	}

	p := s.seat(ch, account)
	ch.emit(Event{Kind: EventPlayerJoined, Payload: PlayerJoined{
		PlayerID: p.ID, AccountID: account, PlayerCount: s.Game.PlayerCount,
	}})
	return p, nil
}

// Leave removes account's seat.
func (s *State) Leave(ch *Changes, account string) error {
	p, err := s.requireSeat(account)
	if err != nil {
		return err
	}
	s.removeAndSettle(ch, p)
	return nil
}

// Kick removes another seat on the host's behalf.
func (s *State) Kick(ch *Changes, hostAccount, playerID string) error {
	host, err := s.requireHost(hostAccount)
	if err != nil {
		return err
	}
	if s.Game.Status != models.StatusWaiting && s.Game.Status != models.StatusSelecting {
		return apperr.New(apperr.CodeStateConflict, "players can only be kicked before the game starts")
	}
	target := s.Player(playerID)
	if target == nil {
		return apperr.New(apperr.CodeNotFound, "player not found")
	}
	if target.ID == host.ID {
		return apperr.New(apperr.CodeValidation, "the host cannot kick themselves")
	}
	ch.emit(Event{Kind: EventPlayerKicked, To: []string{target.AccountID}, Payload: PlayerLeft{
		PlayerID: target.ID, AccountID: target.AccountID, PlayerCount: len(s.Players) - 1,
	}})
	s.removeAndSettle(ch, target)
	return nil
}

// removeAndSettle drops a seat and applies the consequences: host transfer,
// room deletion, forced termination, or turn recovery.
func (s *State) removeAndSettle(ch *Changes, p *models.Player) {
	wasCurrent := false
	if r := s.CurrentRound(); r != nil && s.Game.Status == models.StatusPlaying && r.Phase == models.PhaseAction {
		wasCurrent = r.Current() == p.ID
	}

	s.removeSeat(ch, p)
	ch.emit(Event{Kind: EventPlayerLeft, Payload: PlayerLeft{
		PlayerID: p.ID, AccountID: p.AccountID, PlayerCount: s.Game.PlayerCount,
	}})

	if len(s.Players) == 0 {
		ch.GameDeleted = true
		return
	}
	if p.IsHost {
		next := s.Players[0]
		next.IsHost = true
		s.Game.HostPlayerID = next.ID
		ch.player(next)
		ch.game()
		ch.emit(Event{Kind: EventHostChanged, Payload: HostChanged{PlayerID: next.ID}})
	}

	switch s.Game.Status {
	case models.StatusSelecting, models.StatusPlaying:
		if len(s.Players) < catalog.MinSeats {
			s.terminate(ch, "not enough players to continue")
			return
		}
	}
	if wasCurrent {
		r := s.CurrentRound()
		if _, ok := s.advanceToNext(ch, r); !ok {
			_ = s.setPhase(ch, r, models.PhaseDiscussion)
			return
		}
		ch.emit(Event{Kind: EventTurnChanged, Payload: TurnChanged{Round: r.Number, CurrentPlayerID: r.Current()}})
	}
}

func (s *State) removeSeat(ch *Changes, p *models.Player) {
	for i, q := range s.Players {
		if q.ID == p.ID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}
	s.Game.PlayerCount = len(s.Players)
	ch.PlayersRemoved.Add(p.ID)
}

// terminate wipes every seat and tells the remaining members to go.
func (s *State) terminate(ch *Changes, reason string) {
	remaining := s.Accounts()
	for _, p := range s.Players {
		ch.PlayersRemoved.Add(p.ID)
	}
	s.Players = nil
	s.Game.PlayerCount = 0
	s.Game.HostPlayerID = ""
	if err := s.setStatus(ch, models.StatusTerminated); err != nil {
		// Only reachable from waiting, where termination never triggers.
		s.Game.Status = models.StatusTerminated
	}
	now := s.now()
	s.Game.FinishedAt = &now
	ch.game()
	ch.emit(Event{Kind: EventForcedTermination, To: remaining, Payload: ForcedTermination{Reason: reason}})
}

// SetOnline records connection presence for account's seat.
func (s *State) SetOnline(ch *Changes, account string, online bool) error {
	p, err := s.requireSeat(account)
	if err != nil {
		return err
	}
	if p.Online == online {
		return nil
	}
	p.Online = online
	ch.player(p)
	ch.emit(Event{Kind: EventPresenceChanged, Payload: PresenceChanged{PlayerID: p.ID, Online: online}})
	return nil
}

// StartSelection opens role selection.
func (s *State) StartSelection(ch *Changes, account string) error {
	if _, err := s.requireHost(account); err != nil {
		return err
	}
	if s.Game.Status != models.StatusWaiting {
		return apperr.New(apperr.CodeStateConflict, "selection can only start from the waiting room")
	}
	if n := len(s.Players); n < catalog.MinSeats || n > catalog.MaxSeats {
		return apperr.Newf(apperr.CodeCapacity, "need %d to %d players, have %d", catalog.MinSeats, catalog.MaxSeats, n)
	}
	if err := s.setStatus(ch, models.StatusSelecting); err != nil {
		return err
	}
	ch.emit(Event{Kind: EventSelectionStarted, Payload: SelectionStarted{Roles: catalog.Available(len(s.Players))}})
	return nil
}

// LockRole claims a role and color for account's seat.
func (s *State) LockRole(ch *Changes, account string, role catalog.Role, color catalog.Color) error {
	p, err := s.requireSeat(account)
	if err != nil {
		return err
	}
	if s.Game.Status != models.StatusSelecting {
		return apperr.New(apperr.CodeStateConflict, "roles can only be chosen during selection")
	}
	if p.Locked {
		return apperr.New(apperr.CodeStateConflict, "unlock your current choice first")
	}
	if !catalog.AvailableFor(role, len(s.Players)) {
		return apperr.Newf(apperr.CodeValidation, "role %q is not in play with %d players", role, len(s.Players))
	}
	if !catalog.ValidColor(color) {
		return apperr.Newf(apperr.CodeValidation, "unknown color %q", color)
	}
	for _, q := range s.Players {
		if q.ID == p.ID || !q.Locked {
			continue
		}
		if q.Role == role {
			return apperr.New(apperr.CodeRoleTaken, "that role is already taken")
		}
		if q.Color == color {
			return apperr.New(apperr.CodeColorTaken, "that color is already taken")
		}
	}

	p.Role = role
	p.Color = color
	p.Locked = true
	ch.player(p)
	ch.emit(Event{Kind: EventRoleLocked, Payload: RoleLocked{PlayerID: p.ID, Color: color}})
	return nil
}

// UnlockRole releases account's role and color.
func (s *State) UnlockRole(ch *Changes, account string) error {
	p, err := s.requireSeat(account)
	if err != nil {
		return err
	}
	if s.Game.Status != models.StatusSelecting {
		return apperr.New(apperr.CodeStateConflict, "roles can only be changed during selection")
	}
	if !p.Locked {
		return apperr.New(apperr.CodeStateConflict, "nothing to unlock")
	}
	p.Role = ""
	p.Color = ""
	p.Locked = false
	ch.player(p)
	ch.emit(Event{Kind: EventRoleUnlocked, Payload: RoleUnlocked{PlayerID: p.ID}})
	return nil
}

// StartGame deals every round, fixes natural block rounds, and opens
// round one.
func (s *State) StartGame(ch *Changes, account string) error {
	if _, err := s.requireHost(account); err != nil {
		return err
	}
	if s.Game.Status != models.StatusSelecting {
		return apperr.New(apperr.CodeStateConflict, "the game can only start after selection")
	}
	n := len(s.Players)
	if n < catalog.MinSeats || n > catalog.MaxSeats {
		return apperr.Newf(apperr.CodeCapacity, "need %d to %d players, have %d", catalog.MinSeats, catalog.MaxSeats, n)
	}
	taken := make(map[catalog.Role]bool, n)
	for _, p := range s.Players {
		if !p.Locked {
			return apperr.New(apperr.CodeStateConflict, "every player must lock a role first")
		}
		if taken[p.Role] {
			return apperr.New(apperr.CodeStateConflict, "two players hold the same role")
		}
		if !catalog.AvailableFor(p.Role, n) {
			return apperr.Newf(apperr.CodeStateConflict, "role %q is not in play with %d players", p.Role, n)
		}
		taken[p.Role] = true
	}

	if err := s.setStatus(ch, models.StatusPlaying); err != nil {
		return err
	}
	now := s.now()
	s.Game.StartedAt = &now
	s.Game.Score = 0

	s.deal(ch)
	for _, p := range s.Players {
		p.CanAct = true
		p.AttackedRounds = nil
		p.PermanentlyBlocked = false
		p.NaturalBlockRound = 0
		if def, _ := catalog.Lookup(p.Role); def.NaturallyBlocked {
			p.NaturalBlockRound = s.deps.Random.IntN(catalog.Rounds) + 1
		}
		ch.player(p)
	}
	ch.emit(Event{Kind: EventGameStarted, Payload: GameStarted{StartedAt: now.UTC().Format("2006-01-02T15:04:05Z07:00")}})

	first := s.Players[s.deps.Random.IntN(n)]
	s.startRound(ch, 1, first.ID)
	return nil
}

// deal lays out all twelve categories across the three rounds, two genuine
// and two counterfeit per round.
func (s *State) deal(ch *Changes) {
	categories := append([]catalog.Category(nil), catalog.Categories...)
	s.deps.Random.Shuffle(len(categories), func(i, j int) {
		categories[i], categories[j] = categories[j], categories[i]
	})
	for round := 1; round <= catalog.Rounds; round++ {
		genuine := make([]bool, catalog.ArtifactsPerRound)
		for i := range catalog.GenuinePerRound {
			genuine[i] = true
		}
		s.deps.Random.Shuffle(len(genuine), func(i, j int) {
			genuine[i], genuine[j] = genuine[j], genuine[i]
		})
		for i := range catalog.ArtifactsPerRound {
			a := &models.Artifact{
				ID:       s.deps.NewID(),
				GameID:   s.Game.ID,
				Round:    round,
				Category: categories[(round-1)*catalog.ArtifactsPerRound+i],
				Genuine:  genuine[i],
			}
			s.Artifacts = append(s.Artifacts, a)
			ch.ArtifactsAdded.Add(a.ID)
		}
	}
}
