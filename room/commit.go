package room

import (
	"context"
	"fmt"

	"github.com/wfunc/relicroom/game"
	"github.com/wfunc/relicroom/models"
	"github.com/wfunc/relicroom/persistence"
)

// index gives id lookups over the rows of a state.
type index struct {
	players   map[string]*models.Player
	rounds    map[string]*models.Round
	artifacts map[string]*models.Artifact
	actions   map[string]*models.Action
	votes     map[string]*models.IdentificationVote
}

func indexState(s *game.State) index {
	ix := index{
		players:   make(map[string]*models.Player, len(s.Players)),
		rounds:    make(map[string]*models.Round, len(s.Rounds)),
		artifacts: make(map[string]*models.Artifact, len(s.Artifacts)),
		actions:   make(map[string]*models.Action, len(s.Actions)),
		votes:     make(map[string]*models.IdentificationVote, len(s.IdentVotes)),
	}
	for _, p := range s.Players {
		ix.players[p.ID] = p
	}
	for _, r := range s.Rounds {
		ix.rounds[r.ID] = r
	}
	for _, a := range s.Artifacts {
		ix.artifacts[a.ID] = a
	}
	for _, a := range s.Actions {
		ix.actions[a.ID] = a
	}
	for _, v := range s.IdentVotes {
		ix.votes[v.ID] = v
	}
	return ix
}

// Commit writes a command's change set in a single transaction.
func Commit(ctx context.Context, store persistence.Store, s *game.State, ch *game.Changes) error {
	if ch.Empty() {
		return nil
	}
	ix := indexState(s)
	return store.InTx(ctx, func(tx persistence.Tx) error {
		if ch.GameDeleted {
			return tx.DeleteGame(s.Game.ID)
		}
		if ch.GameCreated {
			if err := tx.CreateGame(s.Game); err != nil {
				return err
			}
		} else if ch.GameUpdated {
			if err := tx.UpdateGame(s.Game); err != nil {
				return err
			}
		}

		// 座位先删后加，与 player_count 的增减顺序一致
		for _, id := range ch.PlayersRemoved.IDs() {
			if ch.PlayersAdded.Has(id) {
				continue
			}
			if err := tx.RemovePlayer(s.Game.ID, id); err != nil {
				return err
			}
		}
		for _, id := range ch.PlayersAdded.IDs() {
			if ch.PlayersRemoved.Has(id) {
				continue
			}
			p, ok := ix.players[id]
			if !ok {
				return fmt.Errorf("added player %s missing from state", id)
			}
			if err := tx.AddPlayer(p); err != nil {
				return err
			}
		}
		for _, id := range ch.PlayersUpdated.IDs() {
			if ch.PlayersAdded.Has(id) || ch.PlayersRemoved.Has(id) {
				continue
			}
			p, ok := ix.players[id]
			if !ok {
				continue
			}
			if err := tx.UpdatePlayer(p); err != nil {
				return err
			}
		}

		for _, id := range ch.RoundsAdded.IDs() {
			if err := tx.AddRound(ix.rounds[id]); err != nil {
				return err
			}
		}
		for _, id := range ch.RoundsUpdated.IDs() {
			if ch.RoundsAdded.Has(id) {
				continue
			}
			if err := tx.UpdateRound(ix.rounds[id]); err != nil {
				return err
			}
		}

		for _, id := range ch.ArtifactsAdded.IDs() {
			if err := tx.AddArtifact(ix.artifacts[id]); err != nil {
				return err
			}
		}
		for _, id := range ch.ArtifactsUpdated.IDs() {
			if ch.ArtifactsAdded.Has(id) {
				continue
			}
			if err := tx.UpdateArtifact(ix.artifacts[id]); err != nil {
				return err
			}
		}

		for _, id := range ch.ActionsAdded.IDs() {
			if err := tx.AddAction(ix.actions[id]); err != nil {
				return err
			}
		}
		for _, id := range ch.VotesAdded.IDs() {
			if err := tx.AddIdentificationVote(ix.votes[id]); err != nil {
				return err
			}
		}
		return nil
	})
}
