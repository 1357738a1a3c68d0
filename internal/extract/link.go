package extract

import (
	"math"

	"github.com/ppiankov/groundcheck/internal/model"
)

// spanDistance is the number of characters between two spans, 0 when they touch
func spanDistance(aStart, aEnd, bStart, bEnd int) int {
	switch {
	case aEnd <= bStart:
		return bStart - aEnd
	case bEnd <= aStart:
		return aStart - bEnd
	default:
		return 0
	}
}

// FindCountClaimForList returns the nearest count claim about the list's
// entity within window characters of the list, or nil. Ties go to the
// claim that comes first.
func FindCountClaimForList(list model.ExtractedList, claims []model.NumericClaim, window int) *model.NumericClaim {
	var best *model.NumericClaim
	bestDist := math.MaxInt
	for i := range claims {
		c := &claims[i]
		if c.Kind != model.ClaimKindCount || c.Entity != list.Entity {
			continue
		}
		// A count inside an item describes that item, not the list
		if c.Start >= list.ItemsStart && c.End <= list.ItemsEnd {
			continue
		}
		d := spanDistance(c.Start, c.End, list.Start, list.End)
		if d > window {
			continue
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// DetectMismatches returns the lists whose linked count claim disagrees
// with the number of items listed
func DetectMismatches(parsed model.ParsedResponse, window int) []model.ListMismatch {
	var out []model.ListMismatch
	for _, list := range parsed.Lists {
		claim := FindCountClaimForList(list, parsed.Claims, window)
		if claim == nil {
			continue
		}
		if math.Abs(claim.Value-float64(list.ItemCount)) > 1e-9 {
			out = append(out, model.ListMismatch{List: list, Claim: *claim})
		}
	}
	return out
}
