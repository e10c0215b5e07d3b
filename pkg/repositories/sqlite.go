package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path
// and applies every migration in the migrations directory in name order.
func NewSQLiteRepository(ctx context.Context, path string, migrations string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	dir, err := os.ReadDir(migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return nil, fmt.Errorf("failed to execute migration %s: %v", migrationPath, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

// SaveGameSummary upserts the game row and rewrites its goals, so
// retried saves stay idempotent.
func (r *SQLiteRepository) SaveGameSummary(ctx context.Context, summary types.GameSummary) error {
	game, goals := models.FromSummary(summary)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	q := `
	INSERT OR REPLACE INTO games
	(game_id, started_at, finished_at, duration_ms, score_red, score_blue, periods, overtime, winner, combo_count, power_up_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, q, game.GameID, game.StartedAt, game.FinishedAt, game.DurationMs,
		game.ScoreRed, game.ScoreBlue, game.Periods, game.Overtime, game.Winner,
		game.ComboCount, game.PowerUpCount)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE game_id = ?;`, game.GameID); err != nil {
		return fmt.Errorf("failed to clear goals: %v", err)
	}

	for _, goal := range goals {
		q := `
		INSERT INTO goals (game_id, team, period, phase, points, clock_ms, at)
		VALUES (?, ?, ?, ?, ?, ?, ?);
		`
		_, err = tx.ExecContext(ctx, q, goal.GameID, goal.Team, goal.Period, goal.Phase,
			goal.Points, goal.ClockMs, goal.At)
		if err != nil {
			return fmt.Errorf("failed to insert goal: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) ListGameSummaries(ctx context.Context, limit int) ([]types.GameSummary, error) {
	q := `
	SELECT game_id, started_at, finished_at, duration_ms, score_red, score_blue, periods, overtime, winner, combo_count, power_up_count
	FROM games ORDER BY finished_at DESC LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %v", err)
	}
	defer rows.Close()

	var summaries []types.GameSummary
	for rows.Next() {
		var game models.Game
		if err := rows.Scan(&game.GameID, &game.StartedAt, &game.FinishedAt, &game.DurationMs,
			&game.ScoreRed, &game.ScoreBlue, &game.Periods, &game.Overtime, &game.Winner,
			&game.ComboCount, &game.PowerUpCount); err != nil {
			return nil, fmt.Errorf("failed to scan game: %v", err)
		}
		summaries = append(summaries, game.ToSummary(nil))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %v", err)
	}

	return summaries, nil
}

func (r *SQLiteRepository) GetGameSummary(ctx context.Context, gameID string) (*types.GameSummary, error) {
	q := `
	SELECT game_id, started_at, finished_at, duration_ms, score_red, score_blue, periods, overtime, winner, combo_count, power_up_count
	FROM games WHERE game_id = ?;
	`
	var game models.Game
	if err := r.db.QueryRowContext(ctx, q, gameID).Scan(&game.GameID, &game.StartedAt, &game.FinishedAt,
		&game.DurationMs, &game.ScoreRed, &game.ScoreBlue, &game.Periods, &game.Overtime, &game.Winner,
		&game.ComboCount, &game.PowerUpCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	goals, err := r.listGoals(ctx, gameID)
	if err != nil {
		return nil, err
	}

	summary := game.ToSummary(goals)
	return &summary, nil
}

func (r *SQLiteRepository) listGoals(ctx context.Context, gameID string) ([]models.Goal, error) {
	q := `
	SELECT game_id, team, period, phase, points, clock_ms, at
	FROM goals WHERE game_id = ? ORDER BY at ASC, id ASC;
	`
	rows, err := r.db.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %v", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var goal models.Goal
		if err := rows.Scan(&goal.GameID, &goal.Team, &goal.Period, &goal.Phase,
			&goal.Points, &goal.ClockMs, &goal.At); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %v", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %v", err)
	}

	return goals, nil
}
