// Package reconcile joins live tickets against the critical allow-list.
package reconcile

import (
	"critreport/internal/domain"
	"critreport/internal/normalize"
)

// Join is an inner join on canonical cluster name, exact string equality,
// preserving live order.
//
// A nil result means one side was unavailable upstream. An empty, non-nil
// result means both sides answered and nothing is critical right now.
func Join(live *domain.LiveBatch, allow domain.AllowList) *domain.MatchSet {
	if live == nil || allow == nil {
		return nil
	}
	out := &domain.MatchSet{Roles: live.Roles}
	if len(live.Records) == 0 || len(allow) == 0 || !live.Roles.Has(domain.RoleCluster) {
		return out
	}
	for _, rec := range live.Records {
		if allow.Contains(normalize.Cluster(rec.Cluster)) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}
