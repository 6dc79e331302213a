package retain

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/unicode/norm"
)

// minPhraseRunes is the significance floor: both sides of a change must
// exceed two characters, which filters single-character and punctuation noise.
const minPhraseRunes = 3

// phraseChange is one (originalSpan, editedSpan) substitution found by the
// word-level diff.
type phraseChange struct {
	original string
	edited   string
}

// ExtractPatterns computes a word-level diff between the original and edited
// texts and upserts a LearnedPattern for every significant correction.
// Returns the number of patterns touched. Patterns are never deleted here.
func ExtractPatterns(store *Store, originalText, editedText, mode string) (int, error) {
	if strings.TrimSpace(originalText) == "" || strings.TrimSpace(editedText) == "" {
		return 0, ErrEmptyText
	}

	touched := 0
	for _, change := range phraseChanges(originalText, editedText) {
		if !significantChange(change.original, change.edited) {
			continue
		}
		if _, err := store.UpsertPattern(change.original, change.edited, mode); err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

// ApplyPatterns rewrites text using the store's active patterns, ordered by
// descending confidence. A pattern recorded in the same mode gets a
// ConfidenceModeBonus for this application only; it applies when its
// effective confidence exceeds ActiveMinConfidence. Matching is case- and
// diacritic-insensitive on word boundaries.
func ApplyPatterns(store *Store, text, mode string) (string, error) {
	if text == "" {
		return text, nil
	}

	patterns, err := store.ListPatterns()
	if err != nil {
		return text, err
	}

	for i := range patterns {
		p := &patterns[i]
		if p.OccurrenceCount < ActiveMinOccurrences {
			continue
		}
		effective := p.Confidence
		if mode != "" && p.Mode == mode {
			effective += ConfidenceModeBonus
		}
		if effective <= ActiveMinConfidence {
			continue
		}
		text = replaceFold(text, p.OriginalPhrase, p.CorrectedPhrase)
	}
	return text, nil
}

// phraseChanges diffs the two texts at word granularity and pairs each
// deleted span with the inserted span that replaces it.
func phraseChanges(originalText, editedText string) []phraseChange {
	dmp := diffmatchpatch.New()

	// Word-granularity diff: reuse the line-mode trick with one word per line.
	w1 := strings.Join(strings.Fields(originalText), "\n")
	w2 := strings.Join(strings.Fields(editedText), "\n")
	c1, c2, words := dmp.DiffLinesToChars(w1, w2)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(c1, c2, false), words)

	var changes []phraseChange
	for i := 0; i < len(diffs); i++ {
		if diffs[i].Type != diffmatchpatch.DiffDelete {
			continue
		}
		if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
			changes = append(changes, phraseChange{
				original: wordsFromChunk(diffs[i].Text),
				edited:   wordsFromChunk(diffs[i+1].Text),
			})
			i++
		}
		// A bare deletion or insertion is not a substitution; skip it.
	}
	return changes
}

func wordsFromChunk(chunk string) string {
	return strings.Join(strings.Fields(chunk), " ")
}

// significantChange filters diff noise: both spans must exceed two runes,
// contain at least one letter or digit, and differ case-insensitively.
func significantChange(original, edited string) bool {
	original = strings.TrimSpace(original)
	edited = strings.TrimSpace(edited)

	if len([]rune(original)) < minPhraseRunes || len([]rune(edited)) < minPhraseRunes {
		return false
	}
	if !hasLetterOrDigit(original) || !hasLetterOrDigit(edited) {
		return false
	}
	return !strings.EqualFold(original, edited)
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// foldedText is a case- and diacritic-folded view of a string that remembers
// where each folded rune came from, so matches can be mapped back to byte
// spans in the original.
type foldedText struct {
	runes  []rune
	starts []int // folded rune index -> original start byte
	ends   []int // folded rune index -> original end byte (exclusive)
}

func foldText(s string) foldedText {
	ft := foldedText{}
	for offset, r := range s {
		end := offset + len(string(r))
		for _, dr := range norm.NFD.String(string(r)) {
			if unicode.Is(unicode.Mn, dr) {
				continue
			}
			ft.runes = append(ft.runes, unicode.ToLower(dr))
			ft.starts = append(ft.starts, offset)
			ft.ends = append(ft.ends, end)
		}
	}
	return ft
}

func foldRunes(s string) []rune {
	return foldText(s).runes
}

// replaceFold replaces every word-bounded occurrence of phrase in text with
// replacement, comparing case- and diacritic-insensitively. When a matched
// span begins with an uppercase letter, the replacement is capitalized to
// preserve sentence casing.
func replaceFold(text, phrase, replacement string) string {
	target := foldRunes(phrase)
	if len(target) == 0 {
		return text
	}

	ft := foldText(text)
	var b strings.Builder
	last := 0

	for i := 0; i+len(target) <= len(ft.runes); {
		if !runesEqual(ft.runes[i:i+len(target)], target) || !wordBounded(ft.runes, i, i+len(target)) {
			i++
			continue
		}

		start := ft.starts[i]
		end := ft.ends[i+len(target)-1]
		if start < last {
			i++
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(matchCase(text[start:end], replacement))
		last = end
		i += len(target)
	}

	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// wordBounded reports whether runes[start:end] is not glued to surrounding
// letters or digits, so "hey" never matches inside "they".
func wordBounded(runes []rune, start, end int) bool {
	if start > 0 {
		r := runes[start-1]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(runes) {
		r := runes[end]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// matchCase uppercases the replacement's first rune when the matched span
// starts uppercase.
func matchCase(matched, replacement string) string {
	mr := []rune(matched)
	rr := []rune(replacement)
	if len(mr) == 0 || len(rr) == 0 {
		return replacement
	}
	if unicode.IsUpper(mr[0]) && unicode.IsLower(rr[0]) {
		rr[0] = unicode.ToUpper(rr[0])
		return string(rr)
	}
	return replacement
}
