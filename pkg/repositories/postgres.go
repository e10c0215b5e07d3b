package repositories

import (
	"context"
	"fmt"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository connects to the database at connStr. The schema
// is managed externally (see migrations/postgres). The caller is
// responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	var username string
	var database string
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to query database: %v", err)
	}
	log.Info("Connected to %s as %s", database, username)

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

// SaveGameSummary upserts the game row and rewrites its goals, so
// retried saves stay idempotent.
func (r *PostgresRepository) SaveGameSummary(ctx context.Context, summary types.GameSummary) error {
	game, goals := models.FromSummary(summary)

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	q := `
	INSERT INTO games
	(game_id, started_at, finished_at, duration_ms, score_red, score_blue, periods, overtime, winner, combo_count, power_up_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (game_id) DO UPDATE SET
		started_at = $2, finished_at = $3, duration_ms = $4, score_red = $5, score_blue = $6,
		periods = $7, overtime = $8, winner = $9, combo_count = $10, power_up_count = $11;
	`
	_, err = tx.Exec(ctx, q, game.GameID, game.StartedAt, game.FinishedAt, game.DurationMs,
		game.ScoreRed, game.ScoreBlue, game.Periods, game.Overtime, game.Winner,
		game.ComboCount, game.PowerUpCount)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM goals WHERE game_id = $1;`, game.GameID); err != nil {
		return fmt.Errorf("failed to clear goals: %v", err)
	}

	for _, goal := range goals {
		q := `
		INSERT INTO goals (game_id, team, period, phase, points, clock_ms, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
		`
		_, err = tx.Exec(ctx, q, goal.GameID, goal.Team, goal.Period, goal.Phase,
			goal.Points, goal.ClockMs, goal.At)
		if err != nil {
			return fmt.Errorf("failed to insert goal: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *PostgresRepository) ListGameSummaries(ctx context.Context, limit int) ([]types.GameSummary, error) {
	q := `
	SELECT game_id, started_at, finished_at, duration_ms, score_red, score_blue, periods, overtime, winner, combo_count, power_up_count
	FROM games ORDER BY finished_at DESC LIMIT $1;
	`
	rows, err := r.conn.Query(ctx, q, limit)
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

func (r *PostgresRepository) GetGameSummary(ctx context.Context, gameID string) (*types.GameSummary, error) {
	q := `
	SELECT game_id, started_at, finished_at, duration_ms, score_red, score_blue, periods, overtime, winner, combo_count, power_up_count
	FROM games WHERE game_id = $1;
	`
	var game models.Game
	if err := r.conn.QueryRow(ctx, q, gameID).Scan(&game.GameID, &game.StartedAt, &game.FinishedAt,
		&game.DurationMs, &game.ScoreRed, &game.ScoreBlue, &game.Periods, &game.Overtime, &game.Winner,
		&game.ComboCount, &game.PowerUpCount); err != nil {
		if err == pgx.ErrNoRows {
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

func (r *PostgresRepository) listGoals(ctx context.Context, gameID string) ([]models.Goal, error) {
	q := `
	SELECT game_id, team, period, phase, points, clock_ms, at
	FROM goals WHERE game_id = $1 ORDER BY at ASC, id ASC;
	`
	rows, err := r.conn.Query(ctx, q, gameID)
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
