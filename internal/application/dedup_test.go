package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credaudit/internal/application"
	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

func TestGroupByIdentity_GroupsAndOrders(t *testing.T) {
	records := []model.Credential{
		cred("r1", "a@x.com"),
		cred("r2", "a@x.com"),
		cred("r3", "b@y.com"),
		cred("r4", "not-an-email"),
		cred("r5", "c@z.com"),
	}

	groups := application.GroupByIdentity(records)

	require.Len(t, groups, 3)
	assert.Equal(t, model.IdentityGroup{Identity: "a@x.com", MemberIDs: []string{"r1", "r2"}, Count: 2}, groups[0])
	assert.Equal(t, model.IdentityGroup{Identity: "b@y.com", MemberIDs: []string{"r3"}, Count: 1}, groups[1])
	assert.Equal(t, model.IdentityGroup{Identity: "c@z.com", MemberIDs: []string{"r5"}, Count: 1}, groups[2])
}

func TestGroupByIdentity_NormalizesCaseAndWhitespace(t *testing.T) {
	records := []model.Credential{
		cred("r1", "  Alice@Example.COM "),
		cred("r2", "alice@example.com"),
		cred("r3", "ALICE@EXAMPLE.COM"),
	}

	groups := application.GroupByIdentity(records)

	require.Len(t, groups, 1)
	assert.Equal(t, "alice@example.com", groups[0].Identity)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, []string{"r1", "r2", "r3"}, groups[0].MemberIDs)
}

func TestGroupByIdentity_Idempotent(t *testing.T) {
	records := []model.Credential{
		cred("r9", "zed@z.com"),
		cred("r1", "amy@a.com"),
		cred("r5", "Amy@A.com"),
		cred("r2", "user"),
		cred("r3", ""),
		cred("r4", "mid@m.com"),
	}

	first := application.GroupByIdentity(records)
	second := application.GroupByIdentity(records)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"amy@a.com", "mid@m.com", "zed@z.com"}, identities(first))
}

func TestGroupByIdentity_NoEligibleRecords(t *testing.T) {
	groups := application.GroupByIdentity([]model.Credential{cred("r1", "bob"), cred("r2", "  ")})
	assert.Empty(t, groups)

	assert.Empty(t, application.GroupByIdentity(nil))
}

func identities(groups []model.IdentityGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Identity
	}
	return out
}
