package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/playmetrics/churn-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	days_since_last_game    REAL NOT NULL,
	days_since_last_deposit REAL NOT NULL,
	games_last_7_days       INTEGER NOT NULL,
	games_last_30_days      INTEGER NOT NULL,
	total_games             INTEGER NOT NULL,
	total_deposits          INTEGER NOT NULL,
	total_deposit_amount    REAL NOT NULL,
	total_wagered           REAL NOT NULL,
	total_bonuses           INTEGER NOT NULL,
	bonus_cancel_rate       REAL NOT NULL,
	bonus_completion_rate   REAL NOT NULL,
	account_age_days        INTEGER NOT NULL,
	kyc_status              TEXT NOT NULL,
	is_vip                  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_churn_analyses_created_at ON churn_analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_churn_predictions_analysis_id ON churn_user_predictions(analysis_id);
CREATE INDEX IF NOT EXISTS idx_churn_predictions_user_id ON churn_user_predictions(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, summary model.BatchSummary, records []model.UserRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	insertSummary := fmt.Sprintf(
		`INSERT INTO churn_analyses (%s) VALUES (%s)`,
		strings.Join(summaryColumns, ", "), questionMarks(len(summaryColumns)),
	)
	if _, err := tx.ExecContext(ctx, insertSummary, summaryValues(summary)...); err != nil {
		return eris.Wrapf(err, "sqlite: insert analysis %s", summary.AnalysisID)
	}

	insertRecord := fmt.Sprintf(
		`INSERT INTO churn_user_predictions (%s) VALUES (%s)`,
		strings.Join(recordColumns, ", "), questionMarks(len(recordColumns)),
	)
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, insertRecord, recordValues(uuid.New().String(), r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert prediction for user %s", r.UserID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit analysis")
}

func (s *SQLiteStore) GetSummary(ctx context.Context, analysisID string) (*model.BatchSummary, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM churn_analyses WHERE analysis_id = ?`,
		strings.Join(summaryColumns, ", "),
	)
	var summary model.BatchSummary
	err := s.db.QueryRowContext(ctx, query, analysisID).Scan(summaryFields(&summary)...)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: analysis %s not found", analysisID)
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", analysisID)
	}
	return &summary, nil
}

func (s *SQLiteStore) ListSummaries(ctx context.Context, limit int) ([]model.BatchSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		`SELECT %s FROM churn_analyses ORDER BY created_at DESC LIMIT ?`,
		strings.Join(summaryColumns, ", "),
	)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var summaries []model.BatchSummary
	for rows.Next() {
		var summary model.BatchSummary
		if err := rows.Scan(summaryFields(&summary)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		summaries = append(summaries, summary)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}

func (s *SQLiteStore) ListUserRecords(ctx context.Context, analysisID string) ([]model.UserRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM churn_user_predictions WHERE analysis_id = ? ORDER BY churn_score DESC`,
		strings.Join(recordColumns, ", "),
	)
	rows, err := s.db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list predictions for %s", analysisID)
	}
	defer rows.Close()

	var records []model.UserRecord
	for rows.Next() {
		var id string
		var r model.UserRecord
		if err := rows.Scan(recordFields(&id, &r)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate predictions")
}

// questionMarks returns "?, ?, ..." with n placeholders.
func questionMarks(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}
