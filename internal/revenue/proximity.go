package revenue

import (
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
)

// InferLinks pairs each unlinked receipt with the commercial entry of the
// same lead whose date is closest to the receipt's, provided it is within
// window. Matched receipts are returned as copies carrying the inferred
// link; the input is not modified. It also returns how many were matched.
func InferLinks(receipts []*domain.ReceiptEntry, commercial []*domain.CommercialEntry, window time.Duration) ([]*domain.ReceiptEntry, int) {
	if window <= 0 {
		return receipts, 0
	}
	byLead := make(map[uuid.UUID][]*domain.CommercialEntry)
	for _, e := range commercial {
		if e == nil || e.IsCancelled() {
			continue
		}
		byLead[e.LeadID] = append(byLead[e.LeadID], e)
	}

	out := make([]*domain.ReceiptEntry, len(receipts))
	matched := 0
	for i, rc := range receipts {
		out[i] = rc
		if rc == nil || !rc.IsDirect() || rc.LeadID == nil {
			continue
		}
		var best *domain.CommercialEntry
		var bestGap time.Duration
		for _, e := range byLead[*rc.LeadID] {
			gap := absDuration(rc.EntryDate.Sub(e.EntryDate))
			if gap > window {
				continue
			}
			if best == nil || gap < bestGap {
				best, bestGap = e, gap
			}
		}
		if best == nil {
			continue
		}
		linked := *rc
		id := best.ID
		linked.CommercialEntryID = &id
		out[i] = &linked
		matched++
	}
	return out, matched
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
