/*
PURPOSE:
  Parses a reviewer's free-text reply into a structured ranking.
  Models do not reliably follow output instructions, so parsing is an
  ordered chain of strategies, each a pure function tried in sequence
  until one yields a non-empty ranking.

REQUIREMENTS:
  User-specified:
  - Strategy order: fenced JSON block, raw ranking object, legacy
    "FINAL RANKING:" heading, bare label scan.
  - The terminal strategy never errors; worst case is an empty ranking.

  Implementation-discovered:
  - Decode failures fall through to the next strategy instead of
    erroring; a half-valid fenced block must not poison the reply.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/ranking.go
  - Each strategy is independently unit-testable.

RELATED FILES:
  - internal/engine/ranking.go (produces the prompt demanding the
    fenced-block format this parser prefers)
*/

package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/daryltucker/council-runner/internal/model"
)

var (
	fencedBlockRe   = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	rankingObjRe    = regexp.MustCompile(`\{\s*"ranking"\s*:`)
	numberedLabelRe = regexp.MustCompile(`\d+\.\s*Response [A-Z]`)
	labelRe         = regexp.MustCompile(`Response [A-Z]`)
)

type parseStrategy func(string) (model.ParsedRanking, bool)

// ParseRanking runs the fallback chain over the reviewer's full reply.
// It never fails: a reply that defeats every strategy yields an empty
// ranking and score map.
func ParseRanking(text string) model.ParsedRanking {
	strategies := []parseStrategy{
		parseFencedBlock,
		parseRankingObject,
		parseLegacyHeading,
		parseLabelScan,
	}
	for _, strategy := range strategies {
		if parsed, ok := strategy(text); ok {
			return parsed
		}
	}
	return emptyRanking()
}

func emptyRanking() model.ParsedRanking {
	return model.ParsedRanking{Ranking: []string{}, Scores: map[string]float64{}}
}

type rankingPayload struct {
	Ranking []string           `json:"ranking"`
	Scores  map[string]float64 `json:"scores"`
}

func decodePayload(raw string) (model.ParsedRanking, bool) {
	var payload rankingPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.ParsedRanking{}, false
	}
	if len(payload.Ranking) == 0 {
		return model.ParsedRanking{}, false
	}
	parsed := emptyRanking()
	parsed.Ranking = payload.Ranking
	if payload.Scores != nil {
		parsed.Scores = payload.Scores
	}
	return parsed, true
}

// parseFencedBlock decodes the first ```json fenced block.
func parseFencedBlock(text string) (model.ParsedRanking, bool) {
	m := fencedBlockRe.FindStringSubmatch(text)
	if m == nil {
		return model.ParsedRanking{}, false
	}
	return decodePayload(m[1])
}

// parseRankingObject finds the first balanced-brace object that starts
// with a ranking key and decodes that span.
func parseRankingObject(text string) (model.ParsedRanking, bool) {
	loc := rankingObjRe.FindStringIndex(text)
	if loc == nil {
		return model.ParsedRanking{}, false
	}
	start := loc[0]
	depth := 0
	end := start
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end > start {
			break
		}
	}
	if end == start {
		return model.ParsedRanking{}, false
	}
	return decodePayload(text[start:end])
}

// parseLegacyHeading extracts ordered labels after a "FINAL RANKING:"
// section heading (backwards compatibility with older reviewer output).
func parseLegacyHeading(text string) (model.ParsedRanking, bool) {
	_, section, found := strings.Cut(text, "FINAL RANKING:")
	if !found {
		return model.ParsedRanking{}, false
	}

	var labels []string
	if numbered := numberedLabelRe.FindAllString(section, -1); len(numbered) > 0 {
		for _, m := range numbered {
			labels = append(labels, labelRe.FindString(m))
		}
	} else {
		labels = labelRe.FindAllString(section, -1)
	}
	if len(labels) == 0 {
		return model.ParsedRanking{}, false
	}

	parsed := emptyRanking()
	parsed.Ranking = labels
	return parsed, true
}

// parseLabelScan is the terminal fallback: any label-shaped tokens in
// their order of appearance. Always succeeds; the ranking may be empty.
func parseLabelScan(text string) (model.ParsedRanking, bool) {
	parsed := emptyRanking()
	if labels := labelRe.FindAllString(text, -1); labels != nil {
		parsed.Ranking = labels
	}
	return parsed, true
}
