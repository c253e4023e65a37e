/*
PURPOSE:
  Combines per-reviewer rankings and scores into one ordered league
  table, resolving anonymized labels back to their authors and
  optionally discarding self-votes.

REQUIREMENTS:
  User-specified:
  - Self-vote exclusion drops the observation entirely: neither the
    position nor the score is counted.
  - Means are 1-indexed, rounded to 2 decimals, absent (nil) with no
    observations.
  - Final order: descending mean score (missing sorts as 0), then
    ascending mean position (missing sorts as the 999 sentinel), then
    1-indexed ranks. Deterministic for identical inputs; ties keep
    their input order.

  Implementation-discovered:
  - Author order must be collected by first appearance, not by map
    iteration, or stable sorting cannot make ties deterministic.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/verify
  - Pure function; no engine state involved.

RELATED FILES:
  - internal/engine/ranking.go
*/

package engine

import (
	"math"
	"sort"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
)

const missingPositionSentinel = 999

// Aggregate builds one AggregateEntry per backend that authored at
// least one candidate referenced by any parsed submission.
func Aggregate(submissions []model.RankingSubmission, labelToBackend map[string]string, excludeSelfVotes bool) []model.AggregateEntry {
	positions := make(map[string][]float64)
	scores := make(map[string][]float64)
	var authorOrder []string
	seen := make(map[string]bool)
	selfVotesExcluded := 0

	record := func(author string) {
		if !seen[author] {
			seen[author] = true
			authorOrder = append(authorOrder, author)
		}
	}

	for _, sub := range submissions {
		for i, label := range sub.Parsed.Ranking {
			author, known := labelToBackend[label]
			if !known {
				continue
			}
			if excludeSelfVotes && sub.Reviewer == author {
				selfVotesExcluded++
				continue
			}
			record(author)
			positions[author] = append(positions[author], float64(i+1))
		}

		// Score labels iterate in ranking order first so author
		// discovery stays deterministic; leftovers follow sorted.
		for _, label := range scoreLabelsInOrder(sub.Parsed) {
			author, known := labelToBackend[label]
			if !known {
				continue
			}
			if excludeSelfVotes && sub.Reviewer == author {
				continue
			}
			record(author)
			scores[author] = append(scores[author], sub.Parsed.Scores[label])
		}
	}

	if selfVotesExcluded > 0 {
		output.Logger.Debug("self-votes excluded from aggregate", "count", selfVotesExcluded)
	}

	entries := make([]model.AggregateEntry, 0, len(authorOrder))
	for _, author := range authorOrder {
		entries = append(entries, model.AggregateEntry{
			Backend:           author,
			AveragePosition:   mean(positions[author]),
			AverageScore:      mean(scores[author]),
			VoteCount:         len(positions[author]),
			SelfVotesExcluded: excludeSelfVotes,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := sortScore(entries[i]), sortScore(entries[j])
		if si != sj {
			return si > sj
		}
		return sortPosition(entries[i]) < sortPosition(entries[j])
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// scoreLabelsInOrder yields the score map's labels with the ranking's
// order first and any score-only labels after, sorted.
func scoreLabelsInOrder(parsed model.ParsedRanking) []string {
	var ordered []string
	used := make(map[string]bool)
	for _, label := range parsed.Ranking {
		if _, ok := parsed.Scores[label]; ok && !used[label] {
			used[label] = true
			ordered = append(ordered, label)
		}
	}
	var rest []string
	for label := range parsed.Scores {
		if !used[label] {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := math.Round(sum/float64(len(values))*100) / 100
	return &m
}

func sortScore(e model.AggregateEntry) float64 {
	if e.AverageScore == nil {
		return 0
	}
	return *e.AverageScore
}

func sortPosition(e model.AggregateEntry) float64 {
	if e.AveragePosition == nil {
		return missingPositionSentinel
	}
	return *e.AveragePosition
}
