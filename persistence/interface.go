// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/relicroom/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is a unique-constraint violation: a taken room code, a
	// duplicate seat, or a role or color already locked in the room.
	ErrConflict = errors.New("record conflicts with an existing row")
)

// Snapshot is every row of one game.
type Snapshot struct {
	Game       *models.Game
	Players    []*models.Player
	Rounds     []*models.Round
	Artifacts  []*models.Artifact
	Actions    []*models.Action
	IdentVotes []*models.IdentificationVote
}

// Store is the durable source of truth for games.
type Store interface {
	// InTx runs fn in one transaction. fn's error rolls everything back.
	InTx(ctx context.Context, fn func(Tx) error) error
	LoadGame(ctx context.Context, gameID string) (*Snapshot, error)
	// FindActiveByCode resolves a room code to a waiting, selecting or
	// playing game.
	FindActiveByCode(ctx context.Context, code string) (*models.Game, error)
	SeedRoles(ctx context.Context) error
	Close() error
}

// Tx is the write side of one transaction. Seat inserts and deletes adjust
// the game's player_count atomically; UpdateGame never writes it.
type Tx interface {
	CreateGame(g *models.Game) error
	UpdateGame(g *models.Game) error
	DeleteGame(gameID string) error

	AddPlayer(p *models.Player) error
	UpdatePlayer(p *models.Player) error
	RemovePlayer(gameID, playerID string) error

	AddRound(r *models.Round) error
	UpdateRound(r *models.Round) error

	AddArtifact(a *models.Artifact) error
	UpdateArtifact(a *models.Artifact) error

	AddAction(a *models.Action) error
	AddIdentificationVote(v *models.IdentificationVote) error
}
