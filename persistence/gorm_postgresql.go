// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/relicroom/models"
)

// GormPostgreSQL is the Postgres-backed Store.
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL opens a pooled GORM connection. The schema comes from
// Migrate, not AutoMigrate.
func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &GormPostgreSQL{db: db}, nil
}

// translate maps driver errors onto the package's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (p *GormPostgreSQL) InTx(ctx context.Context, fn func(Tx) error) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return translate(err)
}

func (p *GormPostgreSQL) LoadGame(ctx context.Context, gameID string) (*Snapshot, error) {
	db := p.db.WithContext(ctx)
	snap := &Snapshot{Game: &models.Game{}}
	if err := db.Where("id = ?", gameID).First(snap.Game).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Where("game_id = ?", gameID).Order("join_order").Find(&snap.Players).Error; err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	if err := db.Where("game_id = ?", gameID).Order("number").Find(&snap.Rounds).Error; err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	if err := db.Where("game_id = ?", gameID).Order("round").Find(&snap.Artifacts).Error; err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	if err := db.Where("game_id = ?", gameID).Order("round, seq").Find(&snap.Actions).Error; err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	if err := db.Where("game_id = ?", gameID).Find(&snap.IdentVotes).Error; err != nil {
		return nil, fmt.Errorf("load identification votes: %w", err)
	}
	return snap, nil
}

func (p *GormPostgreSQL) FindActiveByCode(ctx context.Context, code string) (*models.Game, error) {
	var g models.Game
	err := p.db.WithContext(ctx).
		Where("code = ? AND status IN ?", code, activeStatuses()).
		First(&g).Error
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

// SeedRoles upserts the role catalog.
func (p *GormPostgreSQL) SeedRoles(ctx context.Context) error {
	defs := models.RoleDefinitions()
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&defs).Error
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func activeStatuses() []models.GameStatus {
	return []models.GameStatus{models.StatusWaiting, models.StatusSelecting, models.StatusPlaying}
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) adjustSeats(gameID string, delta int) error {
	return t.db.Model(&models.Game{}).
		Where("id = ?", gameID).
		UpdateColumn("player_count", gorm.Expr("player_count + ?", delta)).Error
}

func (t *gormTx) CreateGame(g *models.Game) error {
	row := *g
	// Seats are counted as they are inserted.
	row.PlayerCount = 0
	return translate(t.db.Create(&row).Error)
}

func (t *gormTx) UpdateGame(g *models.Game) error {
	res := t.db.Model(g).Select("*").Omit("player_count", "created_at").Updates(g)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteGame(gameID string) error {
	for _, m := range []any{
		&models.IdentificationVote{}, &models.Action{}, &models.Artifact{},
		&models.Round{}, &models.Player{},
	} {
		if err := t.db.Where("game_id = ?", gameID).Delete(m).Error; err != nil {
			return err
		}
	}
	return t.db.Where("id = ?", gameID).Delete(&models.Game{}).Error
}

func (t *gormTx) AddPlayer(p *models.Player) error {
	if err := t.db.Create(p).Error; err != nil {
		return translate(err)
	}
	return t.adjustSeats(p.GameID, 1)
}

func (t *gormTx) UpdatePlayer(p *models.Player) error {
	return translate(t.db.Model(p).Select("*").Omit("joined_at").Updates(p).Error)
}

func (t *gormTx) RemovePlayer(gameID, playerID string) error {
	res := t.db.Where("id = ? AND game_id = ?", playerID, gameID).Delete(&models.Player{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return t.adjustSeats(gameID, -1)
}

func (t *gormTx) AddRound(r *models.Round) error {
	return translate(t.db.Create(r).Error)
}

func (t *gormTx) UpdateRound(r *models.Round) error {
	return translate(t.db.Model(r).Select("phase", "action_order", "action_seq", "completed_at").Updates(r).Error)
}

func (t *gormTx) AddArtifact(a *models.Artifact) error {
	return translate(t.db.Create(a).Error)
}

func (t *gormTx) UpdateArtifact(a *models.Artifact) error {
	return translate(t.db.Model(a).Select("swapped", "blocked", "vote_count", "vote_rank").Updates(a).Error)
}

func (t *gormTx) AddAction(a *models.Action) error {
	return translate(t.db.Create(a).Error)
}

func (t *gormTx) AddIdentificationVote(v *models.IdentificationVote) error {
	return translate(t.db.Create(v).Error)
}
