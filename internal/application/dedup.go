package application

import (
	"sort"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

// GroupByIdentity groups eligible records by normalized identity. Groups are
// ordered alphabetically by identity and members keep their input order.
// Records without an email-shaped identity are skipped.
func GroupByIdentity(records []model.Credential) []model.IdentityGroup {
	index := make(map[string]int)
	var groups []model.IdentityGroup

	for _, rec := range records {
		if !rec.Eligible() {
			continue
		}
		key := rec.IdentityKey()

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, model.IdentityGroup{Identity: key})
		}
		groups[i].MemberIDs = append(groups[i].MemberIDs, rec.ID)
		groups[i].Count++
	}

	sort.Slice(groups, func(a, b int) bool {
		return groups[a].Identity < groups[b].Identity
	})
	return groups
}
