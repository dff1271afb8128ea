package attribution

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
)

// DefaultClickMargin is how far before a click an inbound message may
// arrive and still be credited to that click.
const DefaultClickMargin = 60 * time.Second

// EventKind tells what anchors an attribution event
type EventKind string

const (
	EventCreation EventKind = "creation"
	EventClick    EventKind = "click"
)

// Event is the moment a lead is (re)attributed. Inbound messages at or
// after LowerBound are candidates for the response-time measurement.
type Event struct {
	LeadID     uuid.UUID  `json:"lead_id"`
	Kind       EventKind  `json:"kind"`
	Anchor     time.Time  `json:"anchor"`
	LowerBound time.Time  `json:"lower_bound"`
	ClickID    *uuid.UUID `json:"click_id,omitempty"`
	LinkID     *uuid.UUID `json:"link_id,omitempty"`
}

// ClickIndex groups clicks by lead, each slice sorted by click time.
type ClickIndex struct {
	byLead map[uuid.UUID][]*domain.LinkClick
}

// NewClickIndex indexes clicks once per report. Clicks that never
// produced a lead are ignored.
func NewClickIndex(clicks []*domain.LinkClick) *ClickIndex {
	idx := &ClickIndex{byLead: make(map[uuid.UUID][]*domain.LinkClick)}
	seen := make(map[uuid.UUID]struct{}, len(clicks))
	for _, c := range clicks {
		if c == nil || c.LeadID == nil {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		idx.byLead[*c.LeadID] = append(idx.byLead[*c.LeadID], c)
	}
	for _, cs := range idx.byLead {
		sort.SliceStable(cs, func(i, j int) bool {
			return cs[i].ClickedAt.Before(cs[j].ClickedAt)
		})
	}
	return idx
}

// For returns the clicks of a lead in chronological order.
func (x *ClickIndex) For(leadID uuid.UUID) []*domain.LinkClick {
	if x == nil {
		return nil
	}
	return x.byLead[leadID]
}

// Latest returns the most recent click of a lead, or nil.
func (x *ClickIndex) Latest(leadID uuid.UUID) *domain.LinkClick {
	cs := x.For(leadID)
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

// LeadIDs lists every lead that has at least one click.
func (x *ClickIndex) LeadIDs() []uuid.UUID {
	if x == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(x.byLead))
	for id := range x.byLead {
		ids = append(ids, id)
	}
	return ids
}

// Options tune click attribution
type Options struct {
	Margin        time.Duration
	LastClickWins bool
}

func DefaultOptions() Options {
	return Options{Margin: DefaultClickMargin, LastClickWins: true}
}

// Resolver applies the remarketing rule: a link lead is re-attributed to
// its latest click.
type Resolver struct {
	opts   Options
	clicks *ClickIndex
}

func NewResolver(clicks *ClickIndex, opts Options) *Resolver {
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	return &Resolver{opts: opts, clicks: clicks}
}

func (r *Resolver) Options() Options { return r.opts }

func (r *Resolver) Clicks() *ClickIndex { return r.clicks }

func (r *Resolver) latestClick(lead *domain.Lead, ch domain.Channel) *domain.LinkClick {
	if ch != domain.ChannelLink || !r.opts.LastClickWins {
		return nil
	}
	return r.clicks.Latest(lead.ID)
}

// EffectiveTime is the later of creation and latest click for link leads,
// and the creation time for everything else.
func (r *Resolver) EffectiveTime(lead *domain.Lead, ch domain.Channel) time.Time {
	if c := r.latestClick(lead, ch); c != nil && c.ClickedAt.After(lead.CreatedAt) {
		return c.ClickedAt
	}
	return lead.CreatedAt
}

// ActiveIn reports whether the lead counts toward rng: it was created in
// the range, or it is a link lead whose latest click falls in the range.
func (r *Resolver) ActiveIn(lead *domain.Lead, ch domain.Channel, rng period.Range) bool {
	if rng.Contains(lead.CreatedAt) {
		return true
	}
	c := r.latestClick(lead, ch)
	return c != nil && rng.Contains(c.ClickedAt)
}

// ClickEvents builds one event per click of the lead, oldest first.
func (r *Resolver) ClickEvents(lead *domain.Lead) []Event {
	cs := r.clicks.For(lead.ID)
	events := make([]Event, 0, len(cs))
	for _, c := range cs {
		events = append(events, r.clickEvent(lead.ID, c))
	}
	return events
}

// PrimaryEvent is the event a lead's response time is measured from: the
// latest click for link leads that have one, creation otherwise.
func (r *Resolver) PrimaryEvent(lead *domain.Lead, ch domain.Channel) Event {
	if c := r.latestClick(lead, ch); c != nil {
		return r.clickEvent(lead.ID, c)
	}
	return Event{
		LeadID:     lead.ID,
		Kind:       EventCreation,
		Anchor:     lead.CreatedAt,
		LowerBound: lead.CreatedAt,
	}
}

func (r *Resolver) clickEvent(leadID uuid.UUID, c *domain.LinkClick) Event {
	clickID, linkID := c.ID, c.LinkID
	return Event{
		LeadID:     leadID,
		Kind:       EventClick,
		Anchor:     c.ClickedAt,
		LowerBound: c.ClickedAt.Add(-r.opts.Margin),
		ClickID:    &clickID,
		LinkID:     &linkID,
	}
}
