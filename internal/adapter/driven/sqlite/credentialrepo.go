package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// eligibleIdentity restricts queries to email-shaped identities.
var eligibleIdentity = sq.Like{"identity_key": "%@%"}

var credentialColumns = []string{
	"id", "name", "url", "identity", "secret", "source", "compromised",
	"created_at", "last_checked_at", "breach_state",
	"risk_score", "risk_severity", "risk_factors", "risk_scored_at",
}

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Insert stores a new credential. An empty ID is replaced with a random UUID
// and a zero CreatedAt with the current time.
func (r *CredentialRepo) Insert(ctx context.Context, cred model.Credential) (model.Credential, error) {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	var breachState any
	if cred.BreachState.Checked() {
		encoded, err := encodeBreachState(cred.BreachState)
		if err != nil {
			return model.Credential{}, err
		}
		breachState = encoded
	}

	var riskScore, riskSeverity, riskFactors, riskScoredAt any
	if cred.Risk != nil {
		factors, err := json.Marshal(nonNilFactors(cred.Risk.Factors))
		if err != nil {
			return model.Credential{}, fmt.Errorf("encode risk factors: %w", err)
		}
		riskScore = cred.Risk.Score
		riskSeverity = string(cred.Risk.Severity)
		riskFactors = string(factors)
		riskScoredAt = formatTime(cred.Risk.ScoredAt)
	}

	query, args, err := sq.Insert("credentials").
		Columns(
			"id", "name", "url", "identity", "identity_key", "secret", "source", "compromised",
			"created_at", "last_checked_at", "breach_checked", "breach_breached", "breach_state",
			"risk_score", "risk_severity", "risk_factors", "risk_scored_at",
		).
		Values(
			cred.ID, cred.Name, cred.URL, cred.Identity, cred.IdentityKey(), nullString(cred.Secret), cred.Source,
			compromisedToDB(cred.Compromised), formatTime(cred.CreatedAt), formatTime(cred.LastCheckedAt),
			boolToInt(cred.BreachState.Checked()), boolToInt(cred.BreachState.Breached()), breachState,
			riskScore, riskSeverity, riskFactors, riskScoredAt,
		).
		ToSql()
	if err != nil {
		return model.Credential{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, args...); err != nil {
		return model.Credential{}, fmt.Errorf("insert credential %s: %w", cred.ID, err)
	}

	return cred, nil
}

// GetByID returns a credential by ID, or nil when it does not exist.
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	query, args, err := sq.Select(credentialColumns...).
		From("credentials").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}
	return cred, nil
}

// ListAll returns every credential ordered by ID.
func (r *CredentialRepo) ListAll(ctx context.Context) ([]model.Credential, error) {
	return r.list(ctx, sq.Select(credentialColumns...).From("credentials").OrderBy("id"))
}

// ListEligible returns credentials with email-shaped identities ordered by ID.
func (r *CredentialRepo) ListEligible(ctx context.Context) ([]model.Credential, error) {
	return r.list(ctx, sq.Select(credentialColumns...).
		From("credentials").
		Where(eligibleIdentity).
		OrderBy("id"))
}

func (r *CredentialRepo) list(ctx context.Context, b sq.SelectBuilder) ([]model.Credential, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// ApplyBreachState writes state to every record sharing identity in one
// transaction. Either all members are updated or none are.
func (r *CredentialRepo) ApplyBreachState(ctx context.Context, identity string, state model.BreachState) (int, error) {
	key := model.NormalizeIdentity(identity)

	encoded, err := encodeBreachState(state)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", driven.ErrPersistence, key, err)
	}

	query, args, err := sq.Update("credentials").
		Set("breach_checked", 1).
		Set("breach_breached", boolToInt(state.Breached())).
		Set("breach_state", encoded).
		Set("last_checked_at", formatTime(state.CheckedAt)).
		Where(sq.Eq{"identity_key": key}).
		Where(eligibleIdentity).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build update: %w", driven.ErrPersistence, err)
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", driven.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: update %s: %w", driven.ErrPersistence, key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected for %s: %w", driven.ErrPersistence, key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit %s: %w", driven.ErrPersistence, key, err)
	}

	return int(n), nil
}

// identityStates groups eligible records by identity. An identity counts as
// checked only when every member carries a checked state.
func identityStates() sq.SelectBuilder {
	return sq.Select(
		"identity_key",
		"MIN(breach_checked) AS checked",
		"MAX(breach_breached) AS breached",
	).
		From("credentials").
		Where(eligibleIdentity).
		GroupBy("identity_key")
}

// CountIdentities returns the number of distinct eligible identities.
func (r *CredentialRepo) CountIdentities(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(DISTINCT identity_key)").
		From("credentials").
		Where(eligibleIdentity).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return total, nil
}

// CountCheckedIdentities returns how many distinct identities are checked and
// how many of those are breached.
func (r *CredentialRepo) CountCheckedIdentities(ctx context.Context) (int, int, error) {
	query, args, err := sq.Select("COUNT(*)", "COALESCE(SUM(breached), 0)").
		FromSelect(identityStates(), "ids").
		Where(sq.Eq{"checked": 1}).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build checked count: %w", err)
	}

	var checked, breached int
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&checked, &breached); err != nil {
		return 0, 0, fmt.Errorf("count checked identities: %w", err)
	}
	return checked, breached, nil
}

// UncheckedIdentities returns eligible identities with at least one unchecked
// member, alphabetically.
func (r *CredentialRepo) UncheckedIdentities(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("identity_key").
		FromSelect(identityStates(), "ids").
		Where(sq.Eq{"checked": 0}).
		OrderBy("identity_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unchecked select: %w", err)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unchecked identities: %w", err)
	}
	defer rows.Close()

	identities := []string{}
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unchecked identities: %w", err)
	}

	return identities, nil
}

// SaveRiskAssessments overwrites the risk fields of each record in one
// transaction. Unknown IDs are ignored.
func (r *CredentialRepo) SaveRiskAssessments(ctx context.Context, assessments map[string]model.RiskAssessment) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	for id, a := range assessments {
		factors, err := json.Marshal(nonNilFactors(a.Factors))
		if err != nil {
			return fmt.Errorf("encode risk factors for %s: %w", id, err)
		}

		query, args, err := sq.Update("credentials").
			Set("risk_score", a.Score).
			Set("risk_severity", string(a.Severity)).
			Set("risk_factors", string(factors)).
			Set("risk_scored_at", formatTime(a.ScoredAt)).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build risk update: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save risk for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit risk assessments: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (*model.Credential, error) {
	var (
		cred                                    model.Credential
		secret, lastChecked, breachState        sql.NullString
		riskSeverity, riskFactors, riskScoredAt sql.NullString
		compromised, riskScore                  sql.NullInt64
		createdAt                               string
	)

	err := s.Scan(
		&cred.ID, &cred.Name, &cred.URL, &cred.Identity, &secret, &cred.Source, &compromised,
		&createdAt, &lastChecked, &breachState,
		&riskScore, &riskSeverity, &riskFactors, &riskScoredAt,
	)
	if err != nil {
		return nil, err
	}

	cred.Secret = secret.String
	cred.Compromised = compromisedFromDB(compromised)

	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if lastChecked.Valid && lastChecked.String != "" {
		cred.LastCheckedAt, err = parseTime(lastChecked.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_checked_at: %w", err)
		}
	}

	cred.BreachState, err = decodeBreachState(breachState.String)
	if err != nil {
		return nil, err
	}

	if riskScore.Valid {
		risk := model.RiskAssessment{
			Score:    int(riskScore.Int64),
			Severity: model.Severity(riskSeverity.String),
			Factors:  []string{},
		}
		if riskFactors.Valid && riskFactors.String != "" {
			if err := json.Unmarshal([]byte(riskFactors.String), &risk.Factors); err != nil {
				return nil, fmt.Errorf("decode risk factors: %w", err)
			}
		}
		if riskScoredAt.Valid && riskScoredAt.String != "" {
			risk.ScoredAt, err = parseTime(riskScoredAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse risk_scored_at: %w", err)
			}
		}
		cred.Risk = &risk
	}

	return &cred, nil
}

func compromisedToDB(f model.CompromiseFlag) any {
	switch f {
	case model.CompromiseCompromised:
		return 1
	case model.CompromiseSafe:
		return 0
	default:
		return nil
	}
}

func compromisedFromDB(v sql.NullInt64) model.CompromiseFlag {
	if !v.Valid {
		return model.CompromiseUnknown
	}
	if v.Int64 != 0 {
		return model.CompromiseCompromised
	}
	return model.CompromiseSafe
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilFactors(f []string) []string {
	if f == nil {
		return []string{}
	}
	return f
}

// formatTime renders t for storage; the zero time is stored as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
