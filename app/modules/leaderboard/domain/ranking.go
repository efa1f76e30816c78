package leaderboarddomain

import "sort"

// SortEntries orders entries by descending score, breaking ties by ascending
// entity id. The tie-break is deliberate policy: cache backends do not all
// agree on same-score ordering, and paginated reads need a stable total order.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].EntityID < entries[j].EntityID
	})
}
