package report

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/attribution"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/responsetime"
	"github.com/naperu/leadlens/internal/revenue"
	"github.com/naperu/leadlens/pkg/logger"
)

// Builder composes dashboard sections from one prepared dataset. It does
// no I/O; everything it needs is fetched beforehand.
type Builder struct {
	ix       *revenue.Index
	messages responsetime.MessageIndex
	failures Failures
	log      logger.Logger
}

func NewBuilder(ix *revenue.Index, messages responsetime.MessageIndex, failures Failures, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	if failures == nil {
		failures = Failures{}
	}
	return &Builder{ix: ix, messages: messages, failures: failures, log: log}
}

type SummarySection struct {
	Health
	Totals         revenue.Totals    `json:"totals"`
	ConversionRate float64           `json:"conversion_rate"`
	ROI            float64           `json:"roi"`
	Anomalies      revenue.Anomalies `json:"anomalies"`
}

func (b *Builder) Summary(scope revenue.Scope, rng period.Range) *SummarySection {
	totals := b.ix.Summary(scope, rng)
	return &SummarySection{
		Health:         b.failures.Health(revenueDeps...),
		Totals:         totals,
		ConversionRate: percent(float64(totals.ConvertedLeads), float64(totals.TotalLeads)),
		ROI:            revenue.ROI(totals.Receipt.Confirmed, totals.Commercial.Total()),
		Anomalies:      b.ix.Anomalies(),
	}
}

type SourceSection struct {
	Health
	Rows     []*revenue.SourceRow  `json:"rows"`
	Channels []*revenue.ChannelRow `json:"channels"`
	Totals   revenue.Totals        `json:"totals"`
}

// Sources builds the per-origin table, busiest origin first.
func (b *Builder) Sources(scope revenue.Scope, rng period.Range) *SourceSection {
	rep := b.ix.BySource(scope, rng)
	rows := rep.Rows
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalLeads != rows[j].TotalLeads {
			return rows[i].TotalLeads > rows[j].TotalLeads
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Key < rows[j].Key
	})
	return &SourceSection{
		Health:   b.failures.Health(sourceDeps...),
		Rows:     rows,
		Channels: rep.Channels,
		Totals:   rep.Totals,
	}
}

type AgentTableRow struct {
	*revenue.AgentRow
	Responses responsetime.Distribution `json:"responses"`
}

type AgentSection struct {
	Health
	Rows []*AgentTableRow `json:"rows"`
}

// Agents builds the per-agent table, busiest agent first. Response times
// are credited to whoever sent the first reply.
func (b *Builder) Agents(scope revenue.Scope, rng period.Range) *AgentSection {
	byResponder := make(map[uuid.UUID][]responsetime.Result)
	for _, r := range b.results(scope, rng) {
		if r.ResponderID != nil {
			byResponder[*r.ResponderID] = append(byResponder[*r.ResponderID], r)
		}
	}

	var rows []*AgentTableRow
	for _, a := range b.ix.ByAgent(scope, rng) {
		rows = append(rows, &AgentTableRow{
			AgentRow:  a,
			Responses: responsetime.Summarize(byResponder[a.AgentID]),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalLeads != rows[j].TotalLeads {
			return rows[i].TotalLeads > rows[j].TotalLeads
		}
		return rows[i].Name < rows[j].Name
	})
	return &AgentSection{Health: b.failures.Health(agentDeps...), Rows: rows}
}

type DailySection struct {
	Health
	Points []*revenue.DayPoint `json:"points"`
}

// Daily builds one point per local calendar day, oldest first.
func (b *Builder) Daily(scope revenue.Scope, rng period.Range, now time.Time) *DailySection {
	return &DailySection{
		Health: b.failures.Health(revenueDeps...),
		Points: b.ix.ByDay(scope, rng, rng.Days(now)),
	}
}

type TodaySection struct {
	Health
	TotalLeads       Delta `json:"total_leads"`
	ConvertedLeads   Delta `json:"converted_leads"`
	Commercial       Delta `json:"commercial"`
	ReceiptConfirmed Delta `json:"receipt_confirmed"`
}

// Today compares today so far with the whole of yesterday. The dataset
// must cover both days.
func (b *Builder) Today(scope revenue.Scope, now time.Time) *TodaySection {
	today, _ := period.Resolve(period.Today, now, nil)
	yesterday, _ := period.Resolve(period.Yesterday, now, nil)
	cur := b.ix.Summary(scope, today)
	prev := b.ix.Summary(scope, yesterday)
	return &TodaySection{
		Health:           b.failures.Health(revenueDeps...),
		TotalLeads:       NewDelta(float64(cur.TotalLeads), float64(prev.TotalLeads)),
		ConvertedLeads:   NewDelta(float64(cur.ConvertedLeads), float64(prev.ConvertedLeads)),
		Commercial:       NewDelta(cur.Commercial.Total().InexactFloat64(), prev.Commercial.Total().InexactFloat64()),
		ReceiptConfirmed: NewDelta(cur.Receipt.Confirmed.InexactFloat64(), prev.Receipt.Confirmed.InexactFloat64()),
	}
}

type ResponseRow struct {
	LeadID   uuid.UUID           `json:"lead_id"`
	LeadName *string             `json:"lead_name,omitempty"`
	Origin   attribution.Origin  `json:"origin"`
	Bucket   responsetime.Bucket `json:"bucket"`
	responsetime.Result
}

type ResponseSection struct {
	Health
	Distribution responsetime.Distribution `json:"distribution"`
	Rows         []*ResponseRow            `json:"rows"`
}

// ResponseTimes measures every counted lead from its primary event.
func (b *Builder) ResponseTimes(scope revenue.Scope, rng period.Range) *ResponseSection {
	results := b.results(scope, rng)
	rows := make([]*ResponseRow, 0, len(results))
	for _, r := range results {
		lead, _ := b.ix.Lead(r.Event.LeadID)
		rows = append(rows, &ResponseRow{
			LeadID:   lead.ID,
			LeadName: lead.Name,
			Origin:   b.ix.Origin(lead.ID),
			Bucket:   r.Bucket(),
			Result:   r,
		})
	}
	return &ResponseSection{
		Health:       b.failures.Health(responseDeps...),
		Distribution: responsetime.Summarize(results),
		Rows:         rows,
	}
}

func (b *Builder) results(scope revenue.Scope, rng period.Range) []responsetime.Result {
	resolver := b.ix.Resolver()
	var out []responsetime.Result
	for _, l := range b.ix.Members(scope, rng) {
		ev := resolver.PrimaryEvent(l, b.ix.Channel(l.ID))
		r := responsetime.Compute(ev, b.messages[l.ID])
		if r.Status == responsetime.StatusInvalid {
			b.log.Warn("skipping negative response time", "lead_id", l.ID)
		}
		out = append(out, r)
	}
	return out
}

type ClickDetail struct {
	Click    *domain.LinkClick   `json:"click"`
	Response responsetime.Result `json:"response"`
	Bucket   responsetime.Bucket `json:"bucket"`
}

type LeadDetail struct {
	Lead        *domain.Lead        `json:"lead"`
	Origin      attribution.Origin  `json:"origin"`
	EffectiveAt time.Time           `json:"effective_at"`
	Primary     responsetime.Result `json:"primary"`
	Clicks      []*ClickDetail      `json:"clicks"`
	Health
}

// Lead explains how one lead is attributed, with a response measurement
// per click. It returns false when the lead is unknown or out of scope.
func (b *Builder) Lead(id uuid.UUID, scope revenue.Scope) (*LeadDetail, bool) {
	lead, ok := b.ix.Lead(id)
	if !ok || !scope.Allows(lead) {
		return nil, false
	}
	resolver := b.ix.Resolver()
	ch := b.ix.Channel(id)
	msgs := b.messages[id]

	detail := &LeadDetail{
		Lead:        lead,
		Origin:      b.ix.Origin(id),
		EffectiveAt: resolver.EffectiveTime(lead, ch),
		Primary:     responsetime.Compute(resolver.PrimaryEvent(lead, ch), msgs),
		Health:      b.failures.Health(responseDeps...),
	}
	clicks := resolver.Clicks().For(id)
	for i, ev := range resolver.ClickEvents(lead) {
		r := responsetime.Compute(ev, msgs)
		detail.Clicks = append(detail.Clicks, &ClickDetail{Click: clicks[i], Response: r, Bucket: r.Bucket()})
	}
	return detail, true
}

// Dashboard holds the enabled sections in Panels order. Disabled sections
// are nil.
type Dashboard struct {
	Period        period.Range     `json:"period"`
	Scope         revenue.Scope    `json:"scope"`
	Panels        []PanelID        `json:"panels"`
	GeneratedAt   time.Time        `json:"generated_at"`
	FailedSources []string         `json:"failed_sources,omitempty"`
	Summary       *SummarySection  `json:"summary,omitempty"`
	Today         *TodaySection    `json:"today,omitempty"`
	Sources       *SourceSection   `json:"sources,omitempty"`
	Agents        *AgentSection    `json:"agents,omitempty"`
	Daily         *DailySection    `json:"daily,omitempty"`
	ResponseTimes *ResponseSection `json:"response_times,omitempty"`
}

func (b *Builder) Dashboard(cfg Config, scope revenue.Scope, rng period.Range, now time.Time) *Dashboard {
	d := &Dashboard{
		Period:        rng,
		Scope:         scope,
		Panels:        cfg.Enabled(),
		GeneratedAt:   now,
		FailedSources: b.failures.Names(),
	}
	for _, p := range d.Panels {
		switch p {
		case PanelSummary:
			d.Summary = b.Summary(scope, rng)
		case PanelToday:
			d.Today = b.Today(scope, now)
		case PanelSources:
			d.Sources = b.Sources(scope, rng)
		case PanelAgents:
			d.Agents = b.Agents(scope, rng)
		case PanelDaily:
			d.Daily = b.Daily(scope, rng, now)
		case PanelResponseTimes:
			d.ResponseTimes = b.ResponseTimes(scope, rng)
		}
	}
	return d
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(part/whole*100*100) / 100
}
