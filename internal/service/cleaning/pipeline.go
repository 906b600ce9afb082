// Package cleaning narrows raw detection output to curated names.
//
// Clean is a pure function over result entries. Stages run in a fixed order:
// drop removed and blank entries, split on delimiters, title-case all-caps text,
// restore diacritics, drop blacklisted terms, strip everything that is not a letter
// or space, drop candidates with too few letters, then deduplicate and sort into
// reading order.
package cleaning

import (
	"sort"
	"strings"
	"unicode"

	"ocrweb/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the per-candidate fixed-point loop. Every pass after the first
// only changes case or applies a correction, so two passes always suffice.
const maxPasses = 4

// Clean returns the curated entries for entries. The input is not modified and
// Clean(Clean(x)) equals Clean(x).
func Clean(entries []model.ResultEntry) []model.ResultEntry {
	title := cases.Title(language.German)
	out := make([]model.ResultEntry, 0, len(entries))

	for _, e := range entries {
		if !e.IsActive() {
			continue
		}
		text := e.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		for _, candidate := range Split(text) {
			name, ok := normalize(candidate, title)
			if !ok {
				continue
			}
			out = append(out, model.ResultEntry{
				BBox:       e.BBox.Normalize(),
				Name:       model.StringPtr(name),
				Confidence: cloneConfidence(e.Confidence),
				Status:     model.StatusActive,
			})
		}
	}

	out = Dedupe(out)
	SortReadingOrder(out)
	return out
}

// Split breaks text on Delimiters and drops blank pieces.
func Split(text string) []string {
	parts := strings.FieldsFunc(norm.NFC.String(text), func(r rune) bool {
		return strings.ContainsRune(Delimiters, r)
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalize runs the candidate stages until the candidate stops changing, so the
// output already satisfies every filter a later run would apply.
func normalize(candidate string, title cases.Caser) (string, bool) {
	current := candidate
	for i := 0; i < maxPasses; i++ {
		next, ok := normalizeOnce(current, title)
		if !ok {
			return "", false
		}
		if next == current {
			return next, true
		}
		current = next
	}
	return current, true
}

func normalizeOnce(candidate string, title cases.Caser) (string, bool) {
	s := strings.TrimSpace(candidate)

	if IsAllUpper(s) {
		s = title.String(strings.ToLower(s))
	}
	if fixed, ok := Corrections[s]; ok {
		s = fixed
	}
	if IsBlacklisted(s) {
		return "", false
	}

	s = StripNonLetters(s)
	if CountLetters(s) < MinLetters {
		return "", false
	}
	return s, true
}

// IsAllUpper reports whether s has at least one letter and no lower-case letters.
func IsAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if unicode.IsLower(r) {
			return false
		}
	}
	return hasLetter
}

// IsBlacklisted reports whether s contains a blacklisted term (case-sensitive).
func IsBlacklisted(s string) bool {
	for _, term := range Blacklist {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// StripNonLetters keeps letters and spaces, collapses whitespace runs and trims.
func StripNonLetters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CountLetters counts letter runes in s.
func CountLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

type dedupeKey struct {
	bbox model.BBox
	name string
}

// Dedupe collapses entries with the same box and name, keeping the first position
// and the highest confidence. Absent confidence counts as 0.
func Dedupe(entries []model.ResultEntry) []model.ResultEntry {
	seen := make(map[dedupeKey]int, len(entries))
	out := make([]model.ResultEntry, 0, len(entries))

	for _, e := range entries {
		key := dedupeKey{bbox: e.BBox, name: e.Text()}
		if i, ok := seen[key]; ok {
			if confidenceOf(e) > confidenceOf(out[i]) {
				out[i].Confidence = cloneConfidence(e.Confidence)
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, e)
	}
	return out
}

// SortReadingOrder orders entries top-to-bottom, then left-to-right. The sort is
// stable so equal positions keep their relative order.
func SortReadingOrder(entries []model.ResultEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].BBox.Y1 != entries[j].BBox.Y1 {
			return entries[i].BBox.Y1 < entries[j].BBox.Y1
		}
		return entries[i].BBox.X1 < entries[j].BBox.X1
	})
}

func confidenceOf(e model.ResultEntry) float64 {
	if e.Confidence == nil {
		return 0
	}
	return *e.Confidence
}

func cloneConfidence(c *float64) *float64 {
	if c == nil {
		return nil
	}
	return model.FloatPtr(*c)
}
