package dresscode

import "sort"

// Tally counts, for every submission, how many ballots include its
// device among their targets, sorted descending. Zero-vote entries are
// kept at the bottom rather than dropped. Votes for devices without a
// submission are ignored. Stable sort, so ties keep submission order.
func Tally(room Room) []VoteResult {
	counts := make(map[string]int, len(room.Submissions))
	for _, sub := range room.Submissions {
		counts[sub.DeviceID] = 0
	}

	for _, vote := range room.Votes {
		for _, target := range vote.VotedFor {
			if _, ok := counts[target]; ok {
				counts[target]++
			}
		}
	}

	results := make([]VoteResult, 0, len(room.Submissions))
	for _, sub := range room.Submissions {
		results = append(results, VoteResult{
			DeviceID:  sub.DeviceID,
			Name:      sub.Name,
			PhotoURL:  sub.PhotoURL,
			Message:   sub.Message,
			VoteCount: counts[sub.DeviceID],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].VoteCount > results[j].VoteCount
	})

	return results
}
