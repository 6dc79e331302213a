package retain

import (
	"sort"
	"strings"
)

// Marker weights for the formality heuristic.
const (
	formalMarkerWeight      = 0.2
	slangMarkerWeight       = -0.3
	contractionMarkerWeight = -0.2
	contractionScale        = 10 // contraction ratio scaling, chosen for sensitivity
	punctuationScale        = 2
)

var formalMarkers = []string{
	"therefore", "furthermore", "moreover", "however", "regarding",
	"accordingly", "consequently", "nevertheless", "sincerely",
	"dear", "mr.", "ms.", "mrs.", "dr.",
}

var slangMarkers = []string{
	"gonna", "wanna", "gotta", "kinda", "sorta", "dunno",
	"yeah", "yep", "nope", "hey", "cool", "awesome", "stuff", "lol",
}

var contractionForms = []string{
	"can't", "won't", "don't", "didn't", "doesn't", "isn't", "aren't",
	"wasn't", "weren't", "couldn't", "shouldn't", "wouldn't", "hasn't",
	"haven't", "it's", "that's", "there's", "i'm", "i've", "i'll", "i'd",
	"you're", "you've", "you'll", "we're", "we've", "we'll", "they're",
	"they've", "they'll", "let's",
}

// casualToFormal rewrites applied when the formality preference is high.
var casualToFormal = map[string]string{
	"gonna":  "going to",
	"wanna":  "want to",
	"gotta":  "have to",
	"kinda":  "somewhat",
	"sorta":  "somewhat",
	"yeah":   "yes",
	"yep":    "yes",
	"nope":   "no",
	"can't":  "cannot",
	"won't":  "will not",
	"don't":  "do not",
	"isn't":  "is not",
	"didn't": "did not",
	"i'm":    "I am",
	"it's":   "it is",
}

// formalToCasual is the inverse table, applied when formality is low.
var formalToCasual = map[string]string{
	"cannot":   "can't",
	"will not": "won't",
	"do not":   "don't",
	"is not":   "isn't",
	"did not":  "didn't",
	"going to": "gonna",
	"want to":  "wanna",
	"i am":     "I'm",
	"it is":    "it's",
}

// fillerPhrases are stripped when the conciseness preference is high.
// Ordered longest first so overlapping fillers collapse correctly.
var fillerPhrases = []string{
	"at the end of the day",
	"in order to",
	"needless to say",
	"for what it's worth",
	"you know",
	"i mean",
	"basically",
	"actually",
	"literally",
	"honestly",
	"just",
}

// fillerReplacements substitutes rather than removes where dropping the
// phrase would break grammar.
var fillerReplacements = map[string]string{
	"in order to": "to",
}

// AnalyzePreferences derives stylistic preference deltas from a free edit and
// applies a smoothed update (alpha = PreferenceAlpha) for each dimension.
func AnalyzePreferences(store *Store, before, after string) error {
	if strings.TrimSpace(before) == "" || strings.TrimSpace(after) == "" {
		return ErrEmptyText
	}

	updates := map[PreferenceType]float64{
		PreferenceFormality:    formalityScore(after) - formalityScore(before),
		PreferenceConciseness:  concisenessScore(before, after),
		PreferenceContractions: contractionRatio(after) - contractionRatio(before),
		PreferencePunctuation:  punctuationDensity(after) - punctuationDensity(before),
	}

	for ptype, delta := range updates {
		if delta == 0 {
			continue
		}
		if _, err := store.ApplyPreferenceDelta(ptype, delta, PreferenceAlpha); err != nil {
			return err
		}
	}
	return nil
}

// LearnFromChoice updates preferences from a forced-choice selection. A
// binary pick carries less signal than a free edit, so updates run at
// half weight (alpha * ChoiceWeight).
func LearnFromChoice(store *Store, selected, rejected string) error {
	if strings.TrimSpace(selected) == "" || strings.TrimSpace(rejected) == "" {
		return ErrEmptyText
	}

	alpha := PreferenceAlpha * ChoiceWeight
	updates := map[PreferenceType]float64{
		PreferenceFormality:    formalityScore(selected) - formalityScore(rejected),
		PreferenceConciseness:  concisenessScore(rejected, selected),
		PreferenceContractions: contractionRatio(selected) - contractionRatio(rejected),
		PreferencePunctuation:  punctuationDensity(selected) - punctuationDensity(rejected),
	}

	for ptype, delta := range updates {
		if delta == 0 {
			continue
		}
		if _, err := store.ApplyPreferenceDelta(ptype, delta, alpha); err != nil {
			return err
		}
	}
	return nil
}

// AdjustForPreferences rewrites text according to the learned preferences.
// Thresholds are hysteretic at AdjustmentThreshold so a few noisy samples
// never flip the output style back and forth.
func AdjustForPreferences(store *Store, text string) (string, error) {
	if text == "" {
		return text, nil
	}

	prefs, err := store.ListPreferences()
	if err != nil {
		return text, err
	}

	for i := range prefs {
		p := &prefs[i]
		switch p.Type {
		case PreferenceFormality:
			if p.Value > AdjustmentThreshold {
				text = applyTable(text, casualToFormal)
			} else if p.Value < -AdjustmentThreshold {
				text = applyTable(text, formalToCasual)
			}
		case PreferenceConciseness:
			if p.Value > AdjustmentThreshold {
				text = stripFillers(text)
			}
		}
	}
	return text, nil
}

// formalityScore rates a text's formality in [-1, 1]: formal connectives and
// titles raise it, slang and informal contractions lower it.
func formalityScore(text string) float64 {
	folded := " " + string(foldRunes(text)) + " "

	score := 0.0
	for _, marker := range formalMarkers {
		score += formalMarkerWeight * float64(countWord(folded, marker))
	}
	for _, marker := range slangMarkers {
		score += slangMarkerWeight * float64(countWord(folded, marker))
	}
	for _, form := range contractionForms {
		score += contractionMarkerWeight * float64(countWord(folded, form))
	}
	return clamp(score, -1, 1)
}

// concisenessScore is positive when after is shorter than before.
func concisenessScore(before, after string) float64 {
	wb := wordCount(before)
	if wb == 0 {
		return 0
	}
	return clamp(1-float64(wordCount(after))/float64(wb), -1, 1)
}

// contractionRatio measures contraction use per word, scaled for sensitivity.
func contractionRatio(text string) float64 {
	wc := wordCount(text)
	if wc == 0 {
		return 0
	}
	folded := " " + string(foldRunes(text)) + " "

	count := 0
	for _, form := range contractionForms {
		count += countWord(folded, form)
	}
	return clamp(float64(count)/float64(wc)*contractionScale, -1, 1)
}

// punctuationDensity measures commas, semicolons, and dashes per word.
func punctuationDensity(text string) float64 {
	wc := wordCount(text)
	if wc == 0 {
		return 0
	}
	count := strings.Count(text, ",") + strings.Count(text, ";") + strings.Count(text, "—") + strings.Count(text, " - ")
	return clamp(float64(count)/float64(wc)*punctuationScale, -1, 1)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// countWord counts word-bounded occurrences of phrase in a folded text that
// has been padded with leading and trailing spaces.
func countWord(folded, phrase string) int {
	count := 0
	search := folded
	for {
		idx := strings.Index(search, phrase)
		if idx < 0 {
			return count
		}
		before := search[:idx]
		after := search[idx+len(phrase):]
		if boundaryByte(before, true) && boundaryByte(after, false) {
			count++
		}
		search = after
	}
}

func boundaryByte(s string, trailing bool) bool {
	if s == "" {
		return true
	}
	var b byte
	if trailing {
		b = s[len(s)-1]
	} else {
		b = s[0]
	}
	return !isWordByte(b)
}

func isWordByte(b byte) bool {
	return b == '\'' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func applyTable(text string, table map[string]string) string {
	// Longer phrases first so "do not" wins over "not".
	phrases := make([]string, 0, len(table))
	for phrase := range table {
		phrases = append(phrases, phrase)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})

	for _, phrase := range phrases {
		text = replaceFold(text, phrase, table[phrase])
	}
	return text
}

func stripFillers(text string) string {
	for _, filler := range fillerPhrases {
		if repl, ok := fillerReplacements[filler]; ok {
			text = replaceFold(text, filler, repl)
			continue
		}
		text = removeFold(text, filler)
	}
	return text
}

// removeFold deletes word-bounded occurrences of phrase along with one
// adjacent space or a trailing ", " so the sentence stays readable.
func removeFold(text, phrase string) string {
	replaced := replaceFold(text, phrase, "\x00")
	if !strings.Contains(replaced, "\x00") {
		return text
	}

	replaced = strings.ReplaceAll(replaced, "\x00, ", "")
	replaced = strings.ReplaceAll(replaced, "\x00 ", "")
	replaced = strings.ReplaceAll(replaced, " \x00", "")
	replaced = strings.ReplaceAll(replaced, "\x00", "")
	return replaced
}
