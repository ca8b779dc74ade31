package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credaudit/internal/application"
	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

func reportFixture() []model.Credential {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	risk := func(score int, factors ...string) *model.RiskAssessment {
		return &model.RiskAssessment{
			Score:    score,
			Severity: model.SeverityForScore(score),
			Factors:  factors,
			ScoredAt: at,
		}
	}

	return []model.Credential{
		{ID: "r4", Name: "Printer", Identity: "admin"},
		{ID: "r2", Name: "Forum", Identity: "bob@example.org", Risk: risk(15, "Never checked for breaches")},
		{ID: "r5", Name: "Backup", Identity: "carol@example.net", Risk: risk(0)},
		{ID: "r3", Name: "Webmail", Identity: "alice@example.com", Secret: "do-not-print",
			Risk: risk(45, "Found in 2 known breach(es)", "Weak password (weakness 30/100)")},
		{ID: "r1", Name: "Chase", Identity: "alice@example.com",
			Risk: risk(80, "Marked as compromised", "Critical account category")},
	}
}

func TestRenderRiskReport_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRiskReport(&buf, reportFixture()))

	assert.NotContains(t, buf.String(), "do-not-print")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "risk_report", buf.Bytes())
}

func TestRenderRiskJSON_SortedWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRiskJSON(&buf, reportFixture()))

	out := buf.String()
	assert.NotContains(t, out, "do-not-print")
	assert.Less(t, indexOf(out, `"Chase"`), indexOf(out, `"Webmail"`))
	assert.Less(t, indexOf(out, `"Backup"`), indexOf(out, `"Printer"`))
}

func TestSortByRisk_TiesBreakByName(t *testing.T) {
	r := &model.RiskAssessment{Score: 50}
	records := []model.Credential{
		{ID: "2", Name: "beta", Risk: r},
		{ID: "1", Name: "alpha", Risk: r},
		{ID: "0", Name: "alpha", Risk: r},
	}

	got := sortByRisk(records)
	assert.Equal(t, []string{"0", "1", "2"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "2", records[0].ID, "input must not be reordered")
}

func TestRenderRunSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary application.RunSummary
		want    string
	}{
		{
			name:    "clean run",
			summary: application.RunSummary{Groups: 3, Processed: 3, Breached: 1, Safe: 2},
			want:    "Checked 3 of 3 identities: 1 breached, 2 safe, 0 errors\n",
		},
		{
			name:    "errors suggest resume",
			summary: application.RunSummary{Groups: 3, Processed: 3, Safe: 1, Errors: 2, RateLimited: 1},
			want: "Checked 3 of 3 identities: 0 breached, 1 safe, 2 errors (1 rate limited)\n" +
				"Some identities are still unchecked. Run `credaudit check --resume` to continue.\n",
		},
		{
			name:    "interrupted",
			summary: application.RunSummary{Groups: 5, Processed: 1, Safe: 1, Interrupted: true},
			want: "Checked 1 of 5 identities: 0 breached, 1 safe, 0 errors\n" +
				"Run interrupted before all identities were checked.\n" +
				"Some identities are still unchecked. Run `credaudit check --resume` to continue.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			RenderRunSummary(&buf, tt.summary)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderProgress(t *testing.T) {
	var buf bytes.Buffer
	RenderProgress(&buf, model.Progress{Total: 3, Checked: 2, Breached: 1, Safe: 1, Remaining: 1})
	assert.Equal(t, "Identities: 3 total, 2 checked (1 breached, 1 safe), 1 remaining\n", buf.String())
}

func indexOf(s, sub string) int {
	return bytes.Index([]byte(s), []byte(sub))
}
