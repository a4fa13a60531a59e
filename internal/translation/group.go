package translation

import (
	"strings"

	"github.com/leeyeel/Sisyphus/internal/subtitles"
)

// DefaultSeparator joins merged entry texts.
const DefaultSeparator = "|||"

// Group is a run of consecutive entries translated together.
type Group struct {
	// Number is the 1-based position of the group in the track.
	Number  int
	Members []subtitles.Entry
	// Merged is the members' flattened texts joined by the separator.
	Merged string
}

// GroupEntries splits track into consecutive groups of at most window
// entries. A window below one is treated as one.
func GroupEntries(track subtitles.Track, window int, sep string) []Group {
	if window < 1 {
		window = 1
	}
	if sep == "" {
		sep = DefaultSeparator
	}
	groups := make([]Group, 0, (track.Len()+window-1)/window)
	for start := 0; start < track.Len(); start += window {
		end := min(start+window, track.Len())
		members := track.Entries[start:end:end]
		texts := make([]string, len(members))
		for i, m := range members {
			texts[i] = m.FlatText()
		}
		groups = append(groups, Group{
			Number:  len(groups) + 1,
			Members: members,
			Merged:  strings.Join(texts, sep),
		})
	}
	return groups
}

// Sources returns the members' original texts.
func (g Group) Sources() []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Text()
	}
	return out
}

// Intact reports whether splitting Merged on sep yields exactly one piece per
// member. It is false when a member's own text contains the separator.
func (g Group) Intact(sep string) bool {
	if sep == "" {
		sep = DefaultSeparator
	}
	return len(strings.Split(g.Merged, sep)) == len(g.Members)
}
