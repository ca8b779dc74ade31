package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

func TestCredentialRepo_InsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.Insert(ctx, model.Credential{
		ID:          "c1",
		Name:        "Bank",
		URL:         "https://bank.example",
		Identity:    "  Alice@Example.COM ",
		Secret:      "hunter2",
		Source:      "csv",
		Compromised: model.CompromiseCompromised,
		CreatedAt:   created,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bank", got.Name)
	assert.Equal(t, "  Alice@Example.COM ", got.Identity, "identity is stored as given")
	assert.Equal(t, "alice@example.com", got.IdentityKey())
	assert.Equal(t, "hunter2", got.Secret)
	assert.Equal(t, model.CompromiseCompromised, got.Compromised)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, got.LastCheckedAt.IsZero())
	assert.False(t, got.BreachState.Checked())
	assert.Nil(t, got.Risk)
}

func TestCredentialRepo_InsertAssignsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)

	cred, err := repo.Insert(context.Background(), model.Credential{Identity: "x@y.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, cred.ID)
	assert.False(t, cred.CreatedAt.IsZero())
}

func TestCredentialRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)

	got, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialRepo_EmptySecretAndUnknownFlag(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()

	_, err := repo.Insert(ctx, model.Credential{ID: "c1", Identity: "a@x.com"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "", got.Secret)
	assert.Equal(t, model.CompromiseUnknown, got.Compromised)
}

func TestCredentialRepo_ListEligible(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	seedCredentials(t, repo, "a@x.com", "not-an-email", "B@y.com")

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	eligible, err := repo.ListEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "r1", eligible[0].ID)
	assert.Equal(t, "r3", eligible[1].ID)
}

func TestCredentialRepo_ApplyBreachState_FansOut(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()
	seedCredentials(t, repo, "a@x.com", "A@X.com ", "b@y.com")

	checkedAt := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	state := model.BreachedState(checkedAt, []model.Breach{
		{Name: "Old", Title: "Old Breach", Domain: "old.example", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), DataTypes: []string{"Emails"}},
		{Name: "New", Title: "New Breach", Domain: "new.example", Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), DataTypes: []string{"Emails", "Passwords"}},
	})

	n, err := repo.ApplyBreachState(ctx, "A@x.com", state)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	r1, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	r2, err := repo.GetByID(ctx, "r2")
	require.NoError(t, err)
	r3, err := repo.GetByID(ctx, "r3")
	require.NoError(t, err)

	assert.Equal(t, r1.BreachState, r2.BreachState, "members share identical state")
	assert.True(t, r1.BreachState.Breached())
	assert.Equal(t, 2, r1.BreachState.BreachCount())
	assert.Equal(t, "New", r1.BreachState.Breaches[0].Name)
	assert.True(t, checkedAt.Equal(r1.LastCheckedAt))
	assert.False(t, r3.BreachState.Checked(), "other identities untouched")

	var raw1, raw2 string
	require.NoError(t, db.Reader.QueryRow(`SELECT breach_state FROM credentials WHERE id = 'r1'`).Scan(&raw1))
	require.NoError(t, db.Reader.QueryRow(`SELECT breach_state FROM credentials WHERE id = 'r2'`).Scan(&raw2))
	assert.Equal(t, raw1, raw2, "persisted state is byte-identical")
}

func TestCredentialRepo_ApplyBreachState_NoMembers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	seedCredentials(t, repo, "a@x.com")

	n, err := repo.ApplyBreachState(context.Background(), "ghost@x.com", model.SafeState(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCredentialRepo_ApplyBreachState_SkipsIneligible(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	seedCredentials(t, repo, "not-an-email")

	n, err := repo.ApplyBreachState(context.Background(), "not-an-email", model.SafeState(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCredentialRepo_ApplyBreachState_RejectsUnchecked(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	seedCredentials(t, repo, "a@x.com")

	_, err := repo.ApplyBreachState(context.Background(), "a@x.com", model.UncheckedState())
	require.Error(t, err)
}

func TestCredentialRepo_Progress(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()
	seedCredentials(t, repo, "a@x.com", "a@x.com", "b@y.com", "not-an-email", "c@z.com", "d@w.com")

	total, err := repo.CountIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	_, err = repo.ApplyBreachState(ctx, "a@x.com", model.SafeState(time.Now()))
	require.NoError(t, err)
	_, err = repo.ApplyBreachState(ctx, "c@z.com", model.BreachedState(time.Now(), []model.Breach{{Name: "X"}}))
	require.NoError(t, err)

	checked, breached, err := repo.CountCheckedIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, breached)

	pending, err := repo.UncheckedIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@y.com", "d@w.com"}, pending)
}

func TestCredentialRepo_NewMemberReopensIdentity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()
	seedCredentials(t, repo, "a@x.com")

	_, err := repo.ApplyBreachState(ctx, "a@x.com", model.SafeState(time.Now()))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, model.Credential{ID: "late", Identity: "a@x.com"})
	require.NoError(t, err)

	pending, err := repo.UncheckedIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, pending)
}

func TestCredentialRepo_SaveRiskAssessments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db)
	ctx := context.Background()
	seedCredentials(t, repo, "a@x.com", "b@y.com")
	scoredAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := repo.SaveRiskAssessments(ctx, map[string]model.RiskAssessment{
		"r1": {Score: 85, Severity: model.SeverityCritical, Factors: []string{"Marked as compromised", "Password reused across accounts"}, ScoredAt: scoredAt},
		"r2": {Score: 0, Severity: model.SeverityLow, ScoredAt: scoredAt},
	})
	require.NoError(t, err)

	r1, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, r1.Risk)
	assert.Equal(t, 85, r1.Risk.Score)
	assert.Equal(t, model.SeverityCritical, r1.Risk.Severity)
	assert.Equal(t, []string{"Marked as compromised", "Password reused across accounts"}, r1.Risk.Factors)
	assert.True(t, scoredAt.Equal(r1.Risk.ScoredAt))

	r2, err := repo.GetByID(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, r2.Risk)
	assert.Equal(t, 0, r2.Risk.Score)
	assert.Empty(t, r2.Risk.Factors)

	// A second pass overwrites wholesale.
	err = repo.SaveRiskAssessments(ctx, map[string]model.RiskAssessment{
		"r1": {Score: 20, Severity: model.SeverityLow, Factors: []string{"Weak password"}, ScoredAt: scoredAt},
	})
	require.NoError(t, err)

	r1, err = repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 20, r1.Risk.Score)
	assert.Equal(t, []string{"Weak password"}, r1.Risk.Factors)
}
