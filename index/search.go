package index

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fwojciec/optsearch"
)

// Scoring constants. The calibration (score bases, bonuses, fuzzy
// thresholds) is empirical; treat these as tunable knobs rather than
// derived values.
const (
	// DefaultLimit caps result sets when the caller passes no limit.
	DefaultLimit = 20

	scoreExact         = 100
	scoreHierarchical  = 100
	scorePhraseName    = 90
	scorePrefixBase    = 80
	scoreWord          = 60
	scorePhraseDesc    = 50
	scoreFuzzyBase     = 40
	wordBoundaryBonus  = 10
	wordRepeatBonus    = 5
	fuzzyCostPerEdit   = 10
	maxEditDistance    = 2
	minFuzzyTokenLen   = 5
	positionPenaltyDiv = 4
)

var phraseRe = regexp.MustCompile(`"([^"]*)"`)

// Search runs five matching strategies in sequence — exact,
// hierarchical/prefix, word, fuzzy, and quoted phrase — merges their
// partial scores by taking the maximum per name, and returns results
// ordered by descending score with names ascending as the tie-break.
func (ix *Index) Search(query string, limit int) ([]optsearch.SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil, optsearch.Errorf(optsearch.ENOTREADY, "index not built")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, optsearch.Errorf(optsearch.EINVALID, "search query required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	phrases, rest := splitPhrases(query)

	scores := make(map[string]int)
	exact := make(map[string]struct{})

	// Exact matches win outright and are excluded from re-scoring by
	// the later strategies.
	if _, ok := ix.options[rest]; ok {
		scores[rest] = scoreExact
		exact[rest] = struct{}{}
	}

	if rest != "" {
		ix.searchPath(rest, scores, exact)
		ix.searchWords(rest, scores, exact)
		ix.searchFuzzy(rest, scores, exact)
	}
	ix.searchPhrases(phrases, scores, exact)

	results := make([]optsearch.SearchResult, 0, len(scores))
	for name, score := range scores {
		results = append(results, optsearch.SearchResult{Option: ix.options[name], Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Option.Name < results[j].Option.Name
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// searchPath handles dotted-path and prefix matching. A dotted query
// first tries component-wise matching, where every query component
// must be a prefix of the corresponding name component (so partial
// trailing segments like "services.ngi" work). When that yields
// nothing, the flat prefix index and finally a substring scan serve as
// fallbacks.
func (ix *Index) searchPath(query string, scores map[string]int, exact map[string]struct{}) {
	if strings.Contains(query, ".") {
		qparts := strings.Split(query, ".")
		matched := false
		for name := range ix.options {
			nparts := strings.Split(name, ".")
			if len(nparts) < len(qparts) {
				continue
			}
			ok := true
			for i, qp := range qparts {
				if !strings.HasPrefix(nparts[i], qp) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			matched = true
			// Shorter, closer names rank higher.
			diff := len(name) - len(query)
			if diff < 0 {
				diff = -diff
			}
			bump(scores, exact, name, scoreHierarchical-diff)
		}
		if matched {
			return
		}
	}

	if names := ix.prefixes[query]; len(names) > 0 {
		for _, name := range names {
			bump(scores, exact, name, scorePrefixBase+wordBoundaryBonus)
		}
		return
	}

	for name := range ix.options {
		pos := strings.Index(name, query)
		if pos < 0 {
			continue
		}
		score := scorePrefixBase
		if pos == 0 || name[pos-1] == '.' {
			score += wordBoundaryBonus
		}
		score -= pos / positionPenaltyDiv
		bump(scores, exact, name, score)
	}
}

// searchWords scores names via the inverted word index, with a small
// bonus per repeated occurrence of the token within the name.
func (ix *Index) searchWords(query string, scores map[string]int, exact map[string]struct{}) {
	for _, tok := range tokenize(query) {
		if len(tok) < minWordLen {
			continue
		}
		for _, name := range ix.words[tok] {
			score := scoreWord
			if occ := strings.Count(strings.ToLower(name), tok); occ > 1 {
				score += wordRepeatBonus * (occ - 1)
			}
			bump(scores, exact, name, score)
		}
	}
}

// searchFuzzy compares long query tokens against indexed words of
// similar length by edit distance.
func (ix *Index) searchFuzzy(query string, scores map[string]int, exact map[string]struct{}) {
	for _, tok := range tokenize(query) {
		if len(tok) < minFuzzyTokenLen {
			continue
		}
		for word, names := range ix.words {
			if diff := len(word) - len(tok); diff > 1 || diff < -1 {
				continue
			}
			d := editDistance(tok, word)
			if d == 0 || d > maxEditDistance {
				continue
			}
			for _, name := range names {
				bump(scores, exact, name, scoreFuzzyBase-fuzzyCostPerEdit*d)
			}
		}
	}
}

// searchPhrases matches double-quoted phrases literally against names
// and descriptions, case-insensitively.
func (ix *Index) searchPhrases(phrases []string, scores map[string]int, exact map[string]struct{}) {
	for _, phrase := range phrases {
		p := strings.ToLower(phrase)
		if p == "" {
			continue
		}
		for name, opt := range ix.options {
			if strings.Contains(strings.ToLower(name), p) {
				bump(scores, exact, name, scorePhraseName)
				continue
			}
			if strings.Contains(strings.ToLower(opt.Description), p) {
				bump(scores, exact, name, scorePhraseDesc)
			}
		}
	}
}

// bump records score for name, keeping the maximum across strategies.
// Names already claimed by the exact strategy are left alone.
func bump(scores map[string]int, exact map[string]struct{}, name string, score int) {
	if _, ok := exact[name]; ok {
		return
	}
	if score < 1 {
		score = 1
	}
	if cur, ok := scores[name]; !ok || score > cur {
		scores[name] = score
	}
}

// splitPhrases extracts double-quoted phrases from the query and
// returns them together with the unquoted remainder.
func splitPhrases(query string) ([]string, string) {
	matches := phraseRe.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil, query
	}
	phrases := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" {
			phrases = append(phrases, m[1])
		}
	}
	rest := strings.TrimSpace(phraseRe.ReplaceAllString(query, " "))
	return phrases, rest
}
