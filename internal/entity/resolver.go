package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoTarget means no entity matched the utterance well enough to act on.
var ErrNoTarget = errors.New("no matching device")

// AmbiguousTargetError reports that two or more entities matched the
// utterance too closely to pick one. The pipeline surfaces the candidate
// names so the user can disambiguate.
type AmbiguousTargetError struct {
	Candidates []string
}

func (e *AmbiguousTargetError) Error() string {
	return "ambiguous device reference: " + strings.Join(e.Candidates, ", ")
}

// Scoring thresholds for target resolution. A best score below
// matchThreshold means no target; a runner-up within ambiguityMargin of
// the best means the utterance cannot distinguish them.
const (
	matchThreshold  = 0.3
	ambiguityMargin = 0.05
)

// fillerWords are command verbs and function words that say nothing
// about which device is meant. They are dropped before scoring so that
// "turn on the ..." does not dilute the score, and so that "lock the
// front door" does not match every id shaped like "lock-1".
var fillerWords = map[string]bool{
	"the": true, "an": true, "to": true, "my": true, "our": true,
	"please": true, "turn": true, "set": true, "make": true,
	"dim": true, "brighten": true, "change": true, "adjust": true,
	"lock": true, "unlock": true, "open": true, "close": true, "shut": true,
	"on": true, "off": true, "up": true, "down": true,
	"in": true, "at": true, "by": true, "for": true, "and": true,
	"it": true, "all": true, "degrees": true, "percent": true,
}

// targetMatch is a scored resolution candidate.
type targetMatch struct {
	entity Entity
	score  float64
}

// Resolve binds an utterance to a single target entity. Only entities
// reporting requiredCapability are considered (empty means any); when
// exactly one entity has the capability, the command itself determines
// the target and no name match is needed. Otherwise the utterance is
// scored against entity names and ids by token overlap. There is
// deliberately no fallback to the first entity when nothing matches.
func Resolve(utterance, requiredCapability string, entities []Entity) (Entity, error) {
	candidates := entities
	if requiredCapability != "" {
		candidates = nil
		for _, e := range entities {
			if e.HasCapability(requiredCapability) {
				candidates = append(candidates, e)
			}
		}
	}

	if len(candidates) == 0 {
		return Entity{}, fmt.Errorf("%w: no device supports %s", ErrNoTarget, requiredCapability)
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	tokens := meaningfulTokens(utterance)
	if len(tokens) == 0 {
		return Entity{}, fmt.Errorf("%w in %q", ErrNoTarget, utterance)
	}

	var matches []targetMatch
	for _, e := range candidates {
		nameScore := tokenMatchScore(tokens, tokenize(strings.ToLower(e.Name)))
		idScore := tokenMatchScore(tokens, tokenize(strings.ToLower(e.ID)))

		score := nameScore
		if idScore > score {
			score = idScore
		}
		if score >= matchThreshold {
			matches = append(matches, targetMatch{entity: e, score: score})
		}
	}

	if len(matches) == 0 {
		return Entity{}, fmt.Errorf("%w for %q", ErrNoTarget, utterance)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > 1 && matches[0].score-matches[1].score < ambiguityMargin {
		var names []string
		for _, m := range matches {
			if matches[0].score-m.score < ambiguityMargin {
				names = append(names, m.entity.Name)
			}
		}
		return Entity{}, &AmbiguousTargetError{Candidates: names}
	}

	return matches[0].entity, nil
}

// meaningfulTokens tokenizes an utterance and drops filler words.
func meaningfulTokens(utterance string) []string {
	tokens := tokenize(strings.ToLower(utterance))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !fillerWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// tokenize splits a string into lowercase tokens on common separators,
// dropping single characters.
func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, "-", " ")

	tokens := strings.Fields(s)
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) > 1 {
			result = append(result, t)
		}
	}
	return result
}

// tokenMatchScore measures how much of the target name the query covers.
// Normalizing by target length keeps leftover utterance words from
// diluting the score of a short device name.
func tokenMatchScore(query, target []string) float64 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}

	covered := 0.0
	for _, t := range target {
		best := 0.0
		for _, q := range query {
			score := 0.0

			// Exact match
			if t == q {
				score = 1.0
				// Substring match
			} else if strings.Contains(t, q) || strings.Contains(q, t) {
				score = 0.8
				// Abbreviation match (e.g., "ac" for a token in "ac unit")
			} else if isAbbreviation(q, t) || isAbbreviation(t, q) {
				score = 0.7
			}

			if score > best {
				best = score
			}
		}
		covered += best
	}

	return covered / float64(len(target))
}

// isAbbreviation checks if 'abbr' appears as a standalone token in 'full'.
func isAbbreviation(abbr, full string) bool {
	if len(abbr) < 2 || len(abbr) > 4 {
		return false
	}
	for _, t := range tokenize(full) {
		if t == abbr {
			return true
		}
	}
	return false
}
