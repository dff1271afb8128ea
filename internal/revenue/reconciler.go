package revenue

import (
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/attribution"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/shopspring/decimal"
)

// Dataset is everything a report is computed from
type Dataset struct {
	Leads      []*domain.Lead
	Links      []*domain.TrackableLink
	Clicks     []*domain.LinkClick
	Sources    []*domain.LeadSource
	Commercial []*domain.CommercialEntry
	Receipts   []*domain.ReceiptEntry
	Agents     []*domain.Agent
	Messages   []*domain.Message
}

// Options for reconciliation
type Options struct {
	Attribution attribution.Options
	// ProximityWindow pairs unlinked receipts with a same-lead commercial
	// entry dated within the window. Zero disables it.
	ProximityWindow time.Duration
}

func DefaultOptions() Options {
	return Options{Attribution: attribution.DefaultOptions()}
}

// Anomalies counts records skipped while indexing a dataset
type Anomalies struct {
	OrphanCommercial int `json:"orphan_commercial"`
	OrphanReceipts   int `json:"orphan_receipts"`
	UnboundReceipts  int `json:"unbound_receipts"`
	OrphanClicks     int `json:"orphan_clicks"`
	OrphanMessages   int `json:"orphan_messages"`
	InferredLinks    int `json:"inferred_links"`
}

func (a Anomalies) Total() int {
	return a.OrphanCommercial + a.OrphanReceipts + a.UnboundReceipts + a.OrphanClicks + a.OrphanMessages
}

type Reconciler struct {
	opts Options
	log  logger.Logger
}

func NewReconciler(opts Options, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{opts: opts, log: log.With("component", "reconciler")}
}

// Index is a dataset prepared for repeated reductions. Build it once per
// request with Prepare; every report method is a pure read.
type Index struct {
	leads      map[uuid.UUID]*domain.Lead
	leadOrder  []*domain.Lead
	channels   map[uuid.UUID]domain.Channel
	origins    map[uuid.UUID]attribution.Origin
	resolver   *attribution.Resolver
	commercial []*domain.CommercialEntry
	linked     map[uuid.UUID][]*domain.ReceiptEntry
	direct     []*domain.ReceiptEntry
	agents     []*domain.Agent
	anomalies  Anomalies
}

func (r *Reconciler) Prepare(ds *Dataset) *Index {
	if ds == nil {
		ds = &Dataset{}
	}
	links := attribution.NewLinkSourceSet(ds.Links)
	sources := attribution.SourceIndex(ds.Sources)

	ix := &Index{
		leads:    make(map[uuid.UUID]*domain.Lead, len(ds.Leads)),
		channels: make(map[uuid.UUID]domain.Channel, len(ds.Leads)),
		origins:  make(map[uuid.UUID]attribution.Origin, len(ds.Leads)),
		resolver: attribution.NewResolver(attribution.NewClickIndex(ds.Clicks), r.opts.Attribution),
		linked:   make(map[uuid.UUID][]*domain.ReceiptEntry),
		agents:   ds.Agents,
	}

	for _, l := range ds.Leads {
		if l == nil {
			continue
		}
		if _, dup := ix.leads[l.ID]; dup {
			continue
		}
		ch := attribution.Classify(l, links)
		ix.leads[l.ID] = l
		ix.leadOrder = append(ix.leadOrder, l)
		ix.channels[l.ID] = ch
		ix.origins[l.ID] = attribution.Describe(l, ch, sources)
	}

	// Anonymous clicks never produced a lead; only a missing lead is suspect.
	for _, c := range ds.Clicks {
		if c == nil || c.LeadID == nil {
			continue
		}
		if _, ok := ix.leads[*c.LeadID]; !ok {
			ix.anomalies.OrphanClicks++
			r.log.Debug("click references unknown lead", "click_id", c.ID, "lead_id", *c.LeadID)
		}
	}
	for _, m := range ds.Messages {
		if m == nil {
			continue
		}
		if _, ok := ix.leads[m.LeadID]; !ok {
			ix.anomalies.OrphanMessages++
			r.log.Debug("message references unknown lead", "message_id", m.ID, "lead_id", m.LeadID)
		}
	}

	seenCommercial := make(map[uuid.UUID]struct{}, len(ds.Commercial))
	for _, e := range ds.Commercial {
		if e == nil || e.IsCancelled() {
			continue
		}
		if _, dup := seenCommercial[e.ID]; dup {
			continue
		}
		seenCommercial[e.ID] = struct{}{}
		if _, ok := ix.leads[e.LeadID]; !ok {
			ix.anomalies.OrphanCommercial++
			r.log.Debug("commercial entry references unknown lead", "entry_id", e.ID, "lead_id", e.LeadID)
			continue
		}
		ix.commercial = append(ix.commercial, e)
	}

	receipts := ds.Receipts
	if r.opts.ProximityWindow > 0 {
		var inferred int
		receipts, inferred = InferLinks(receipts, ix.commercial, r.opts.ProximityWindow)
		ix.anomalies.InferredLinks = inferred
	}

	seenReceipt := make(map[uuid.UUID]struct{}, len(receipts))
	for _, rc := range receipts {
		if rc == nil || rc.IsCancelled() {
			continue
		}
		if _, dup := seenReceipt[rc.ID]; dup {
			continue
		}
		seenReceipt[rc.ID] = struct{}{}
		switch {
		case rc.CommercialEntryID != nil:
			ix.linked[*rc.CommercialEntryID] = append(ix.linked[*rc.CommercialEntryID], rc)
		case rc.LeadID == nil:
			ix.anomalies.UnboundReceipts++
			r.log.Debug("receipt has neither commercial entry nor lead", "receipt_id", rc.ID)
		default:
			if _, ok := ix.leads[*rc.LeadID]; !ok {
				ix.anomalies.OrphanReceipts++
				r.log.Debug("direct receipt references unknown lead", "receipt_id", rc.ID, "lead_id", *rc.LeadID)
				continue
			}
			ix.direct = append(ix.direct, rc)
		}
	}

	if ix.anomalies.Total() > 0 {
		r.log.Warn("skipped inconsistent records",
			"orphan_commercial", ix.anomalies.OrphanCommercial,
			"orphan_receipts", ix.anomalies.OrphanReceipts,
			"unbound_receipts", ix.anomalies.UnboundReceipts,
			"orphan_clicks", ix.anomalies.OrphanClicks,
			"orphan_messages", ix.anomalies.OrphanMessages,
		)
	}
	return ix
}

func (ix *Index) Anomalies() Anomalies { return ix.anomalies }

func (ix *Index) Resolver() *attribution.Resolver { return ix.resolver }

func (ix *Index) Lead(id uuid.UUID) (*domain.Lead, bool) {
	l, ok := ix.leads[id]
	return l, ok
}

func (ix *Index) Channel(id uuid.UUID) domain.Channel { return ix.channels[id] }

func (ix *Index) Origin(id uuid.UUID) attribution.Origin { return ix.origins[id] }

func (ix *Index) Agents() []*domain.Agent { return ix.agents }

// Member reports whether a lead counts toward a report for scope and rng.
// Group chats never count.
func (ix *Index) Member(lead *domain.Lead, scope Scope, rng period.Range) bool {
	if lead.IsGroup || !scope.Allows(lead) {
		return false
	}
	return ix.resolver.ActiveIn(lead, ix.channels[lead.ID], rng)
}

// Members lists the leads counted for scope and rng in input order.
func (ix *Index) Members(scope Scope, rng period.Range) []*domain.Lead {
	var out []*domain.Lead
	for _, l := range ix.leadOrder {
		if ix.Member(l, scope, rng) {
			out = append(out, l)
		}
	}
	return out
}

func (ix *Index) visible(leadID uuid.UUID, scope Scope) (*domain.Lead, bool) {
	l, ok := ix.leads[leadID]
	if !ok || l.IsGroup || !scope.Allows(l) {
		return nil, false
	}
	return l, true
}

// entryRef is a ledger amount resolved to its lead
type entryRef struct {
	lead      *domain.Lead
	value     decimal.Decimal
	confirmed bool
	date      time.Time
	// creator of the commercial entry the amount belongs to, if any
	creator *uuid.UUID
}

// walk visits every amount that counts for scope and rng: commercial
// entries dated in range, receipts linked to them whatever their own date,
// and direct receipts dated in range.
func (ix *Index) walk(scope Scope, rng period.Range, commercial, receipt func(entryRef)) {
	for _, e := range ix.commercial {
		lead, ok := ix.visible(e.LeadID, scope)
		if !ok || !rng.Contains(e.EntryDate) {
			continue
		}
		commercial(entryRef{lead: lead, value: e.Value, confirmed: e.IsConfirmed(), date: e.EntryDate, creator: e.CreatedBy})
		for _, rc := range ix.linked[e.ID] {
			receipt(entryRef{lead: lead, value: rc.Value, confirmed: rc.IsConfirmed(), date: e.EntryDate, creator: e.CreatedBy})
		}
	}
	for _, rc := range ix.direct {
		lead, ok := ix.visible(*rc.LeadID, scope)
		if !ok || !rng.Contains(rc.EntryDate) {
			continue
		}
		receipt(entryRef{lead: lead, value: rc.Value, confirmed: rc.IsConfirmed(), date: rc.EntryDate})
	}
}
