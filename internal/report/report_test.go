package report

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/responsetime"
	"github.com/naperu/leadlens/internal/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC)

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func strPtr(s string) *string { return &s }

type fixture struct {
	agent      uuid.UUID
	linkSource uuid.UUID
	ds         *revenue.Dataset
	messages   []*domain.Message
}

func newFixture() *fixture {
	f := &fixture{agent: uuid.New(), linkSource: uuid.New()}
	plainSource := uuid.New()

	meta := &domain.Lead{ID: uuid.New(), AdSourceID: strPtr("ad-1"), CreatedAt: now.Add(-2 * time.Hour), AssignedTo: &f.agent, Status: domain.LeadStatusConverted}
	organic1 := &domain.Lead{ID: uuid.New(), CreatedAt: now.Add(-3 * time.Hour), AssignedTo: &f.agent}
	organic2 := &domain.Lead{ID: uuid.New(), CreatedAt: now.Add(-4 * time.Hour)}
	source := &domain.Lead{ID: uuid.New(), SourceID: &plainSource, CreatedAt: now.Add(-time.Hour)}
	linked := &domain.Lead{ID: uuid.New(), SourceID: &f.linkSource, CreatedAt: now.AddDate(0, 0, -3)}
	old := &domain.Lead{ID: uuid.New(), CreatedAt: now.AddDate(0, 0, -1)}

	commercial := &domain.CommercialEntry{ID: uuid.New(), LeadID: meta.ID, Value: decimal.NewFromInt(500), EntryDate: now.Add(-time.Hour), CreatedBy: &f.agent}
	f.ds = &revenue.Dataset{
		Leads:   []*domain.Lead{meta, organic1, organic2, source, linked, old},
		Links:   []*domain.TrackableLink{{ID: uuid.New(), SourceID: f.linkSource}},
		Sources: []*domain.LeadSource{{ID: plainSource, Name: "Referral"}, {ID: f.linkSource, Name: "Bio link"}},
		Clicks: []*domain.LinkClick{
			{ID: uuid.New(), LinkID: uuid.New(), LeadID: idPtr(linked.ID), ClickedAt: now.Add(-30 * time.Minute)},
		},
		Commercial: []*domain.CommercialEntry{commercial},
		Receipts: []*domain.ReceiptEntry{
			{ID: uuid.New(), CommercialEntryID: idPtr(commercial.ID), Value: decimal.NewFromInt(500), EntryDate: now, ConfirmedAt: &now},
		},
		Agents: []*domain.Agent{{ID: f.agent, Name: "Ana"}, {ID: uuid.New(), Name: "Beto"}},
	}

	click := now.Add(-30 * time.Minute)
	f.messages = []*domain.Message{
		{ID: uuid.New(), LeadID: organic1.ID, FromClient: true, Timestamp: organic1.CreatedAt},
		{ID: uuid.New(), LeadID: organic1.ID, SenderID: &f.agent, Timestamp: organic1.CreatedAt.Add(200 * time.Second)},
		{ID: uuid.New(), LeadID: linked.ID, FromClient: true, Timestamp: click.Add(-30 * time.Second)},
		{ID: uuid.New(), LeadID: linked.ID, SenderID: &f.agent, Timestamp: click.Add(10 * time.Minute)},
	}
	return f
}

func (f *fixture) builder(failures Failures) *Builder {
	ix := revenue.NewReconciler(revenue.DefaultOptions(), nil).Prepare(f.ds)
	return NewBuilder(ix, responsetime.NewMessageIndex(f.messages), failures, nil)
}

func today(t *testing.T) period.Range {
	r, err := period.Resolve(period.Today, now, nil)
	require.NoError(t, err)
	return r
}

func TestSourcesSortedByLeadCount(t *testing.T) {
	f := newFixture()
	section := f.builder(nil).Sources(revenue.SharedScope(), today(t))

	require.Len(t, section.Rows, 4)
	assert.Equal(t, domain.ChannelOrganic, section.Rows[0].Channel)
	assert.Equal(t, 2, section.Rows[0].TotalLeads, "the lead from yesterday is left out")
	for i := 1; i < len(section.Rows); i++ {
		assert.GreaterOrEqual(t, section.Rows[i-1].TotalLeads, section.Rows[i].TotalLeads)
	}
	assert.Equal(t, 5, section.Totals.TotalLeads)
	assert.False(t, section.Partial)
}

func TestResponseTimes(t *testing.T) {
	f := newFixture()
	section := f.builder(nil).ResponseTimes(revenue.SharedScope(), today(t))

	assert.Equal(t, 1, section.Distribution.Fast, "organic lead answered in 200s")
	assert.Equal(t, 1, section.Distribution.Medium, "link lead answered 630s after an inbound inside the margin")
	assert.Equal(t, 3, section.Distribution.NoClientMessage)
	assert.Len(t, section.Rows, 5)
}

func TestAgentsCarryResponses(t *testing.T) {
	f := newFixture()
	section := f.builder(nil).Agents(revenue.SharedScope(), today(t))

	require.Len(t, section.Rows, 2)
	ana := section.Rows[0]
	assert.Equal(t, "Ana", ana.Name)
	assert.Equal(t, 2, ana.TotalLeads)
	assert.Equal(t, 2, ana.Responses.Responded)
	assert.Equal(t, 100.0, ana.ROI)
	assert.Equal(t, 0.0, section.Rows[1].ROI)
}

func TestTodayVsYesterday(t *testing.T) {
	f := newFixture()
	section := f.builder(nil).Today(revenue.SharedScope(), now)

	assert.Equal(t, 5.0, section.TotalLeads.Current)
	assert.Equal(t, 1.0, section.TotalLeads.Previous)
	require.NotNil(t, section.TotalLeads.Percent)
	assert.Equal(t, 400, *section.TotalLeads.Percent)

	require.NotNil(t, section.Commercial.Percent)
	assert.Equal(t, 100, *section.Commercial.Percent, "nothing sold yesterday")
}

func TestNewDelta(t *testing.T) {
	assert.Nil(t, NewDelta(0, 0).Percent)
	assert.Equal(t, 100, *NewDelta(7, 0).Percent)
	assert.Equal(t, -50, *NewDelta(5, 10).Percent)
	assert.Equal(t, 33, *NewDelta(4, 3).Percent)
	assert.Equal(t, 0, *NewDelta(3, 3).Percent)
}

func TestDailySeries(t *testing.T) {
	f := newFixture()
	last7, err := period.Resolve(period.Last7Days, now, nil)
	require.NoError(t, err)
	section := f.builder(nil).Daily(revenue.SharedScope(), last7, now)

	require.Len(t, section.Points, 8)
	for i := 1; i < len(section.Points); i++ {
		assert.Less(t, section.Points[i-1].Date, section.Points[i].Date)
	}
	last := section.Points[len(section.Points)-1]
	assert.Equal(t, "2024-06-15", last.Date)
	assert.Equal(t, 5, last.TotalLeads, "the clicked link lead moves to today")
	assert.True(t, last.Receipt.Confirmed.Equal(decimal.NewFromInt(500)))
}

func TestPartialSections(t *testing.T) {
	f := newFixture()
	b := f.builder(Failures{CollectionMessages: errors.New("timeout")})

	assert.False(t, b.Sources(revenue.SharedScope(), today(t)).Partial)

	rt := b.ResponseTimes(revenue.SharedScope(), today(t))
	assert.True(t, rt.Partial)
	assert.Equal(t, []string{"messages"}, rt.FailedSources)

	assert.True(t, b.Agents(revenue.SharedScope(), today(t)).Partial)
}

func TestDashboardHonorsPanelConfig(t *testing.T) {
	f := newFixture()
	cfg := Config{Panels: []Panel{
		{ID: PanelDaily, Visible: true, Order: 2},
		{ID: PanelSources, Visible: true, Order: 1},
		{ID: PanelAgents, Visible: false, Order: 3},
		{ID: "unknown", Visible: true},
	}}
	d := f.builder(nil).Dashboard(cfg, revenue.SharedScope(), today(t), now)

	assert.Equal(t, []PanelID{PanelSources, PanelDaily}, d.Panels)
	assert.NotNil(t, d.Sources)
	assert.NotNil(t, d.Daily)
	assert.Nil(t, d.Agents)
	assert.Nil(t, d.Summary)
}

func TestDefaultConfigEnablesEverything(t *testing.T) {
	assert.Len(t, DefaultConfig().Enabled(), 6)
	assert.True(t, DefaultConfig().IsEnabled(PanelToday))
}

func TestLeadDetail(t *testing.T) {
	f := newFixture()
	linked := f.ds.Leads[4]
	b := f.builder(nil)

	d, ok := b.Lead(linked.ID, revenue.SharedScope())
	require.True(t, ok)
	assert.Equal(t, domain.ChannelLink, d.Origin.Channel)
	assert.Equal(t, "Bio link", d.Origin.Name)
	assert.True(t, d.EffectiveAt.After(linked.CreatedAt))
	require.Len(t, d.Clicks, 1)
	assert.Equal(t, responsetime.StatusResponded, d.Clicks[0].Response.Status)

	_, ok = b.Lead(linked.ID, revenue.PersonalScope(f.agent))
	assert.False(t, ok, "unassigned lead is hidden in personal scope")
}
