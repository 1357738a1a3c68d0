package correct

import (
	"sort"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// CommitOrder returns the actions sorted by descending start
func CommitOrder(actions []model.CorrectionAction) []model.CorrectionAction {
	ordered := make([]model.CorrectionAction, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start > ordered[j].Start
		}
		return ordered[i].End > ordered[j].End
	})
	return ordered
}

// Apply splices non-overlapping actions into text from right to left.
// Offsets refer to the original text; editing from the end keeps every
// pending offset valid. The returned actions are in commit order.
func Apply(text string, actions []model.CorrectionAction) (string, []model.CorrectionAction) {
	ordered := CommitOrder(actions)
	out := text
	for _, a := range ordered {
		if a.Start < 0 || a.End > len(out) || a.Start > a.End {
			continue
		}
		var b strings.Builder
		b.Grow(len(out) - (a.End - a.Start) + len(a.Replacement))
		b.WriteString(out[:a.Start])
		b.WriteString(a.Replacement)
		b.WriteString(out[a.End:])
		out = b.String()
	}
	return out, ordered
}

// guard accepts actions by class, then severity, then position, dropping any
// action that overlaps one already accepted. It returns the accepted actions
// and the number dropped.
func guard(actions []model.CorrectionAction) ([]model.CorrectionAction, int) {
	ranked := make([]model.CorrectionAction, len(actions))
	copy(ranked, actions)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	var accepted []model.CorrectionAction
	skipped := 0
	for _, a := range ranked {
		clash := false
		for _, k := range accepted {
			if a.Overlaps(k) {
				clash = true
				break
			}
		}
		if clash {
			skipped++
			continue
		}
		accepted = append(accepted, a)
	}
	return accepted, skipped
}
