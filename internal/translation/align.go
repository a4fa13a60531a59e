package translation

import "strings"

// Alignment is the outcome of splitting a translated group.
type Alignment struct {
	// Texts holds one translated text per group member.
	Texts    []string
	Mismatch bool
	Expected int
	Actual   int
}

// AlignTranslation splits translated on sep and assigns the pieces to the
// group's members by position, whatever they contain. Each piece has its
// surrounding whitespace trimmed. If the piece count differs from the member
// count, every member receives the entire translated text unchanged and
// Mismatch is set.
func AlignTranslation(group Group, translated, sep string) Alignment {
	if sep == "" {
		sep = DefaultSeparator
	}
	parts := strings.Split(translated, sep)
	a := Alignment{
		Texts:    make([]string, len(group.Members)),
		Expected: len(group.Members),
		Actual:   len(parts),
	}
	if a.Actual != a.Expected {
		a.Mismatch = true
		for i := range a.Texts {
			a.Texts[i] = translated
		}
		return a
	}
	for i, part := range parts {
		a.Texts[i] = strings.TrimSpace(part)
	}
	return a
}
