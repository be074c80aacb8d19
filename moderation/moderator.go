// Package moderation masks censored words in chat content before it is
// persisted and broadcast. Matching runs over a normalized view of the
// text (lowercased, leet speak folded, punctuation noise removed) so
// "B.4.D" still matches "bad", while the replacement preserves the
// original spacing.
package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// mapping links each normalized rune back to its index in the original
// text, so a match found in the normalized view can be masked in place.
type mapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// word list. Building is the expensive part; Censor calls are cheap.
func NewModerator(censoredWords []string, replacement rune, log *slog.Logger) (Moderator, error) {
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = normalizeRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement, log: log}, nil
}

// Censor masks every censored pattern in the content and returns the
// sanitized text plus the normalized words that matched. An empty
// match list means the content came back untouched.
func (m *Moderator) Censor(original string) (string, []string) {
	view := normalize(original)
	if len(view.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(view.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	found := make([]string, 0, len(spans))
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(view.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Mask every original rune covered by the span, punctuation
		// inside the match included, so "b.a.d" becomes "*****".
		origStart := view.origIdx[normStart]
		origEnd := view.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.replacement
		}
	}

	return string(origRunes), found
}

// DetectLanguage tags the content with an ISO 639-1 language code for
// moderation logs. Detection quality on short chat lines is rough: the
// tag is informational, never a gate.
func DetectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	return info.Lang.Iso6391()
}

func normalize(input string) mapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return mapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their
// standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during pattern matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
