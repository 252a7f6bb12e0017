package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/playmetrics/churn-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS churn_analyses (
	analysis_id                  TEXT PRIMARY KEY,
	created_at                   TEXT NOT NULL,
	analyzed_date                TEXT NOT NULL,
	total_analyzed               INTEGER NOT NULL,
	total_predicted              INTEGER NOT NULL,
	high_risk_count              INTEGER NOT NULL,
	medium_risk_count            INTEGER NOT NULL,
	low_medium_risk_count        INTEGER NOT NULL,
	low_risk_count               INTEGER NOT NULL,
	churned_count                INTEGER NOT NULL,
	at_risk_count                INTEGER NOT NULL,
	dormant_count                INTEGER NOT NULL,
	active_count                 INTEGER NOT NULL,
	immediate_action_required    INTEGER NOT NULL,
	users_inactive_60plus_days   INTEGER NOT NULL,
	users_no_deposit_90plus_days INTEGER NOT NULL,
	high_value_risk_count        INTEGER NOT NULL,
	total_deposit_at_risk        TEXT NOT NULL,
	avg_churn_score              TEXT NOT NULL,
	avg_days_inactive            TEXT NOT NULL,
	urgent_reactivation_count    INTEGER NOT NULL,
	engagement_campaign_count    INTEGER NOT NULL,
	dormant_wakeup_count         INTEGER NOT NULL,
	vip_intervention_count       INTEGER NOT NULL,
	top_risk_factors             TEXT NOT NULL,
	data_source                  TEXT NOT NULL,
	domain                       TEXT NOT NULL,
	base_url                     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS churn_user_predictions (
	id                      TEXT PRIMARY KEY,
	analysis_id             TEXT NOT NULL REFERENCES churn_analyses(analysis_id),
	analyzed_at             TEXT NOT NULL,
	created_at              TEXT NOT NULL,
	url                     TEXT NOT NULL,
	domain                  TEXT NOT NULL,
	base_url                TEXT NOT NULL,
	user_id                 TEXT NOT NULL,
	email                   TEXT NOT NULL,
	country                 TEXT NOT NULL,
	churn_risk_level        TEXT NOT NULL,
	churn_score             INTEGER NOT NULL,
	player_status           TEXT NOT NULL,
	risk_factors            TEXT NOT NULL,
	retention_actions       TEXT NOT NULL,
	days_since_last_game    DOUBLE PRECISION NOT NULL,
	days_since_last_deposit DOUBLE PRECISION NOT NULL,
	games_last_7_days       INTEGER NOT NULL,
	games_last_30_days      INTEGER NOT NULL,
	total_games             INTEGER NOT NULL,
	total_deposits          INTEGER NOT NULL,
	total_deposit_amount    DOUBLE PRECISION NOT NULL,
	total_wagered           DOUBLE PRECISION NOT NULL,
	total_bonuses           INTEGER NOT NULL,
	bonus_cancel_rate       DOUBLE PRECISION NOT NULL,
	bonus_completion_rate   DOUBLE PRECISION NOT NULL,
	account_age_days        INTEGER NOT NULL,
	kyc_status              TEXT NOT NULL,
	is_vip                  BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_churn_analyses_created_at ON churn_analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_churn_predictions_analysis_id ON churn_user_predictions(analysis_id);
CREATE INDEX IF NOT EXISTS idx_churn_predictions_user_id ON churn_user_predictions(user_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, summary model.BatchSummary, records []model.UserRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	insertSummary := fmt.Sprintf(
		`INSERT INTO churn_analyses (%s) VALUES (%s)`,
		strings.Join(summaryColumns, ", "), dollarMarks(len(summaryColumns)),
	)
	if _, err := tx.Exec(ctx, insertSummary, summaryValues(summary)...); err != nil {
		return eris.Wrapf(err, "postgres: insert analysis %s", summary.AnalysisID)
	}

	insertRecord := fmt.Sprintf(
		`INSERT INTO churn_user_predictions (%s) VALUES (%s)`,
		strings.Join(recordColumns, ", "), dollarMarks(len(recordColumns)),
	)
	for _, r := range records {
		if _, err := tx.Exec(ctx, insertRecord, recordValues(uuid.New().String(), r)...); err != nil {
			return eris.Wrapf(err, "postgres: insert prediction for user %s", r.UserID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit analysis")
}

func (s *PostgresStore) GetSummary(ctx context.Context, analysisID string) (*model.BatchSummary, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM churn_analyses WHERE analysis_id = $1`,
		strings.Join(summaryColumns, ", "),
	)
	var summary model.BatchSummary
	err := s.pool.QueryRow(ctx, query, analysisID).Scan(summaryFields(&summary)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: analysis %s not found", analysisID)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", analysisID)
	}
	return &summary, nil
}

func (s *PostgresStore) ListSummaries(ctx context.Context, limit int) ([]model.BatchSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		`SELECT %s FROM churn_analyses ORDER BY created_at DESC LIMIT $1`,
		strings.Join(summaryColumns, ", "),
	)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var summaries []model.BatchSummary
	for rows.Next() {
		var summary model.BatchSummary
		if err := rows.Scan(summaryFields(&summary)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		summaries = append(summaries, summary)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

func (s *PostgresStore) ListUserRecords(ctx context.Context, analysisID string) ([]model.UserRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM churn_user_predictions WHERE analysis_id = $1 ORDER BY churn_score DESC`,
		strings.Join(recordColumns, ", "),
	)
	rows, err := s.pool.Query(ctx, query, analysisID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list predictions for %s", analysisID)
	}
	defer rows.Close()

	var records []model.UserRecord
	for rows.Next() {
		var id string
		var r model.UserRecord
		if err := rows.Scan(recordFields(&id, &r)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate predictions")
}

// dollarMarks returns "$1, $2, ..." with n placeholders.
func dollarMarks(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(marks, ", ")
}
