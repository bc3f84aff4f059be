package scoring

import "sort"

// Ranked is one row of the official standings.
type Ranked struct {
	Performance  Performance `json:"performance"`
	TotalScore   int         `json:"totalScore"`
	AverageScore float64     `json:"averageScore"`
	JudgeCount   int         `json:"judgeCount"`
	Rank         int         `json:"rank"`
}

// Ranking computes standings from the accumulated scores: per
// performance, the average of submitted scores (0 if none), sorted
// descending. The sort is stable, so equal averages keep insertion
// order; no further tie-break is defined. JudgeCount is reported for
// completeness-of-judging display only: an under-judged performance
// with a high average still outranks a fully-judged lower one, and the
// host is warned rather than blocked when judging is incomplete.
//
// Pure over the room value: callable for live progress views and for
// the frozen result at completion.
func Ranking(room Room) []Ranked {
	ranked := make([]Ranked, 0, len(room.Performances))

	for _, perf := range room.Performances {
		total, count := 0, 0
		for _, sc := range room.Scores {
			if sc.PerformanceID == perf.ID {
				total += sc.Value
				count++
			}
		}

		average := 0.0
		if count > 0 {
			average = float64(total) / float64(count)
		}

		ranked = append(ranked, Ranked{
			Performance:  perf,
			TotalScore:   total,
			AverageScore: average,
			JudgeCount:   count,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AverageScore > ranked[j].AverageScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}
