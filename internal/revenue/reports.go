package revenue

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/attribution"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
)

// SourceRow aggregates leads and both ledgers for one origin
type SourceRow struct {
	Key string `json:"key"`
	attribution.Origin
	TotalLeads     int   `json:"total_leads"`
	ConvertedLeads int   `json:"converted_leads"`
	Commercial     Split `json:"commercial"`
	Receipt        Split `json:"receipt"`
}

// ChannelRow is the same aggregate rolled up per channel
type ChannelRow struct {
	Channel        domain.Channel `json:"channel"`
	TotalLeads     int            `json:"total_leads"`
	ConvertedLeads int            `json:"converted_leads"`
	Commercial     Split          `json:"commercial"`
	Receipt        Split          `json:"receipt"`
}

type Totals struct {
	TotalLeads     int   `json:"total_leads"`
	ConvertedLeads int   `json:"converted_leads"`
	Commercial     Split `json:"commercial"`
	Receipt        Split `json:"receipt"`
}

type SourceReport struct {
	Rows     []*SourceRow  `json:"rows"`
	Channels []*ChannelRow `json:"channels"`
	Totals   Totals        `json:"totals"`
}

// RowKey groups meta and organic leads into a single row each and splits
// link and source leads by source id.
func RowKey(o attribution.Origin) string {
	if (o.Channel == domain.ChannelLink || o.Channel == domain.ChannelSource) && o.SourceID != nil {
		return o.SourceID.String()
	}
	return string(o.Channel)
}

// BySource reconciles leads and revenue per origin.
func (ix *Index) BySource(scope Scope, rng period.Range) *SourceReport {
	rows := make(map[string]*SourceRow)
	row := func(lead *domain.Lead) *SourceRow {
		o := ix.origins[lead.ID]
		if o.Channel == domain.ChannelMeta {
			o = attribution.Origin{Channel: domain.ChannelMeta, Name: attribution.MetaDisplayName}
		}
		key := RowKey(o)
		r, ok := rows[key]
		if !ok {
			r = &SourceRow{Key: key, Origin: o}
			rows[key] = r
		}
		return r
	}

	for _, l := range ix.Members(scope, rng) {
		r := row(l)
		r.TotalLeads++
		if l.IsConverted() {
			r.ConvertedLeads++
		}
	}
	ix.walk(scope, rng,
		func(ref entryRef) { row(ref.lead).Commercial.Add(ref.value, ref.confirmed) },
		func(ref entryRef) { row(ref.lead).Receipt.Add(ref.value, ref.confirmed) },
	)

	report := &SourceReport{}
	channels := make(map[domain.Channel]*ChannelRow, len(domain.Channels))
	for _, ch := range domain.Channels {
		c := &ChannelRow{Channel: ch}
		channels[ch] = c
		report.Channels = append(report.Channels, c)
	}
	for _, r := range rows {
		report.Rows = append(report.Rows, r)

		c := channels[r.Channel]
		c.TotalLeads += r.TotalLeads
		c.ConvertedLeads += r.ConvertedLeads
		c.Commercial.Merge(r.Commercial)
		c.Receipt.Merge(r.Receipt)

		report.Totals.TotalLeads += r.TotalLeads
		report.Totals.ConvertedLeads += r.ConvertedLeads
		report.Totals.Commercial.Merge(r.Commercial)
		report.Totals.Receipt.Merge(r.Receipt)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Key < report.Rows[j].Key })
	return report
}

// Summary totals leads and revenue for scope and rng.
func (ix *Index) Summary(scope Scope, rng period.Range) Totals {
	var t Totals
	for _, l := range ix.Members(scope, rng) {
		t.TotalLeads++
		if l.IsConverted() {
			t.ConvertedLeads++
		}
	}
	ix.walk(scope, rng,
		func(ref entryRef) { t.Commercial.Add(ref.value, ref.confirmed) },
		func(ref entryRef) { t.Receipt.Add(ref.value, ref.confirmed) },
	)
	return t
}

// AgentRow reconciles one agent's leads and revenue
type AgentRow struct {
	AgentID        uuid.UUID `json:"agent_id"`
	Name           string    `json:"name"`
	TotalLeads     int       `json:"total_leads"`
	ConvertedLeads int       `json:"converted_leads"`
	Commercial     Split     `json:"commercial"`
	Receipt        Split     `json:"receipt"`
	ROI            float64   `json:"roi"`
}

// ByAgent attributes leads by assignee, commercial entries by creator and
// receipts through their commercial entry. Direct receipts go to the
// lead's assignee. Only agents the scope allows get a row; in personal
// scope that row takes every entry on the agent's leads.
func (ix *Index) ByAgent(scope Scope, rng period.Range) []*AgentRow {
	rows := make(map[uuid.UUID]*AgentRow, len(ix.agents))
	var out []*AgentRow
	for _, a := range ix.agents {
		if a == nil || !scope.AllowsAgent(a.ID) {
			continue
		}
		if _, dup := rows[a.ID]; dup {
			continue
		}
		r := &AgentRow{AgentID: a.ID, Name: a.Name}
		rows[a.ID] = r
		out = append(out, r)
	}

	for _, l := range ix.Members(scope, rng) {
		if l.AssignedTo == nil {
			continue
		}
		if r, ok := rows[*l.AssignedTo]; ok {
			r.TotalLeads++
			if l.IsConverted() {
				r.ConvertedLeads++
			}
		}
	}

	// Personal scope already limits entries to the agent's own leads, so all
	// of them belong to the agent's row whoever created them.
	owner := func(ref entryRef) *AgentRow {
		if scope.IsPersonal() {
			return rows[scope.AgentID]
		}
		id := ref.creator
		if id == nil {
			id = ref.lead.AssignedTo
		}
		if id == nil {
			return nil
		}
		return rows[*id]
	}
	ix.walk(scope, rng,
		func(ref entryRef) {
			if r := owner(ref); r != nil {
				r.Commercial.Add(ref.value, ref.confirmed)
			}
		},
		func(ref entryRef) {
			if r := owner(ref); r != nil {
				r.Receipt.Add(ref.value, ref.confirmed)
			}
		},
	)

	for _, r := range out {
		r.ROI = ROI(r.Receipt.Confirmed, r.Commercial.Total())
	}
	return out
}

// DayPoint is one day of the daily series
type DayPoint struct {
	Date           string `json:"date"`
	TotalLeads     int    `json:"total_leads"`
	ConvertedLeads int    `json:"converted_leads"`
	Commercial     Split  `json:"commercial"`
	Receipt        Split  `json:"receipt"`
}

// ByDay spreads the report over calendar days. Leads land on their
// effective day, falling back to creation when the latest click is outside
// the range. Linked receipts land on their commercial entry's day. days
// must be local midnights in chronological order.
func (ix *Index) ByDay(scope Scope, rng period.Range, days []time.Time) []*DayPoint {
	if len(days) == 0 {
		return nil
	}
	loc := days[0].Location()
	points := make([]*DayPoint, len(days))
	byDate := make(map[string]*DayPoint, len(days))
	for i, d := range days {
		p := &DayPoint{Date: d.Format(period.DateLayout)}
		points[i] = p
		byDate[p.Date] = p
	}
	at := func(t time.Time) *DayPoint {
		return byDate[t.In(loc).Format(period.DateLayout)]
	}

	for _, l := range ix.Members(scope, rng) {
		when := ix.resolver.EffectiveTime(l, ix.channels[l.ID])
		if !rng.Contains(when) {
			when = l.CreatedAt
		}
		if p := at(when); p != nil {
			p.TotalLeads++
			if l.IsConverted() {
				p.ConvertedLeads++
			}
		}
	}
	ix.walk(scope, rng,
		func(ref entryRef) {
			if p := at(ref.date); p != nil {
				p.Commercial.Add(ref.value, ref.confirmed)
			}
		},
		func(ref entryRef) {
			if p := at(ref.date); p != nil {
				p.Receipt.Add(ref.value, ref.confirmed)
			}
		},
	)
	return points
}
