package attribution

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func TestClassify(t *testing.T) {
	linkSource := uuid.New()
	plainSource := uuid.New()
	links := NewLinkSourceSet([]*domain.TrackableLink{{ID: uuid.New(), SourceID: linkSource}})

	tests := []struct {
		name string
		lead domain.Lead
		want domain.Channel
	}{
		{"ad source wins over everything", domain.Lead{AdSourceID: strPtr("ad-1"), SourceID: idPtr(linkSource)}, domain.ChannelMeta},
		{"link source", domain.Lead{SourceID: idPtr(linkSource)}, domain.ChannelLink},
		{"plain source", domain.Lead{SourceID: idPtr(plainSource)}, domain.ChannelSource},
		{"nothing set", domain.Lead{}, domain.ChannelOrganic},
		{"blank ad source is ignored", domain.Lead{AdSourceID: strPtr("  ")}, domain.ChannelOrganic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := tt.lead
			got := Classify(&lead, links)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Classify(&lead, links), "classification is stable")
		})
	}
}

func TestDescribe(t *testing.T) {
	srcID := uuid.New()
	sources := SourceIndex([]*domain.LeadSource{{
		ID: srcID, Name: "Instagram bio", Code: strPtr("IG"), Color: "#e1306c",
		Tag: &domain.SourceTag{Name: "Social", Color: "#000"},
	}})

	t.Run("meta prefers ad name then campaign", func(t *testing.T) {
		lead := &domain.Lead{AdSourceID: strPtr("123"), CampaignName: strPtr("Spring")}
		assert.Equal(t, "Spring", Describe(lead, domain.ChannelMeta, sources).Name)

		lead.AdName = strPtr("Video A")
		assert.Equal(t, "Video A", Describe(lead, domain.ChannelMeta, sources).Name)
	})

	t.Run("meta falls back to the constant", func(t *testing.T) {
		lead := &domain.Lead{AdSourceID: strPtr(" ")}
		assert.Equal(t, MetaDisplayName, Describe(lead, domain.ChannelMeta, sources).Name)
	})

	t.Run("source carries name code and tag", func(t *testing.T) {
		o := Describe(&domain.Lead{SourceID: idPtr(srcID)}, domain.ChannelSource, sources)
		assert.Equal(t, "Instagram bio", o.Name)
		assert.Equal(t, "IG", *o.Code)
		require.NotNil(t, o.Tag)
		assert.Equal(t, "Social", o.Tag.Name)
	})

	t.Run("unknown source", func(t *testing.T) {
		o := Describe(&domain.Lead{SourceID: idPtr(uuid.New())}, domain.ChannelLink, sources)
		assert.Equal(t, UnknownSourceName, o.Name)
	})

	t.Run("organic", func(t *testing.T) {
		assert.Equal(t, OrganicDisplayName, Describe(&domain.Lead{}, domain.ChannelOrganic, sources).Name)
	})
}

func TestResolverRemarketing(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, loc)
	lead := &domain.Lead{ID: uuid.New(), CreatedAt: now.AddDate(0, 0, -40)}
	clickAt := now.AddDate(0, 0, -2)
	clicks := []*domain.LinkClick{
		{ID: uuid.New(), LinkID: uuid.New(), LeadID: idPtr(lead.ID), ClickedAt: clickAt},
		{ID: uuid.New(), LinkID: uuid.New(), LeadID: idPtr(lead.ID), ClickedAt: now.AddDate(0, 0, -20)},
		{ID: uuid.New(), LinkID: uuid.New(), ClickedAt: now},
	}
	last7, err := period.Resolve(period.Last7Days, now, nil)
	require.NoError(t, err)

	t.Run("latest click brings an old link lead into the window", func(t *testing.T) {
		r := NewResolver(NewClickIndex(clicks), DefaultOptions())
		assert.True(t, r.ActiveIn(lead, domain.ChannelLink, last7))
		assert.True(t, r.EffectiveTime(lead, domain.ChannelLink).Equal(clickAt))
	})

	t.Run("clicks do not move non-link leads", func(t *testing.T) {
		r := NewResolver(NewClickIndex(clicks), DefaultOptions())
		assert.False(t, r.ActiveIn(lead, domain.ChannelSource, last7))
		assert.True(t, r.EffectiveTime(lead, domain.ChannelSource).Equal(lead.CreatedAt))
	})

	t.Run("disabled last click rule uses creation only", func(t *testing.T) {
		r := NewResolver(NewClickIndex(clicks), Options{Margin: DefaultClickMargin})
		assert.False(t, r.ActiveIn(lead, domain.ChannelLink, last7))
		assert.Equal(t, EventCreation, r.PrimaryEvent(lead, domain.ChannelLink).Kind)
	})

	t.Run("click events are ordered and carry the margin", func(t *testing.T) {
		r := NewResolver(NewClickIndex(clicks), DefaultOptions())
		events := r.ClickEvents(lead)
		require.Len(t, events, 2)
		assert.True(t, events[0].Anchor.Before(events[1].Anchor))
		assert.Equal(t, DefaultClickMargin, events[1].Anchor.Sub(events[1].LowerBound))

		primary := r.PrimaryEvent(lead, domain.ChannelLink)
		assert.Equal(t, EventClick, primary.Kind)
		assert.True(t, primary.Anchor.Equal(clickAt))
	})

	// 60s is an observed value, not a documented one; it must stay tunable.
	t.Run("margin comes from options", func(t *testing.T) {
		r := NewResolver(NewClickIndex(clicks), Options{Margin: 2 * time.Minute, LastClickWins: true})
		ev := r.PrimaryEvent(lead, domain.ChannelLink)
		assert.Equal(t, 2*time.Minute, ev.Anchor.Sub(ev.LowerBound))
	})

	t.Run("creation event has no margin", func(t *testing.T) {
		r := NewResolver(nil, DefaultOptions())
		ev := r.PrimaryEvent(lead, domain.ChannelOrganic)
		assert.Equal(t, EventCreation, ev.Kind)
		assert.True(t, ev.LowerBound.Equal(lead.CreatedAt))
	})
}

func TestClickIndexSkipsOrphansAndDuplicates(t *testing.T) {
	leadID := uuid.New()
	c := &domain.LinkClick{ID: uuid.New(), LeadID: &leadID, ClickedAt: time.Now()}
	idx := NewClickIndex([]*domain.LinkClick{c, c, {ID: uuid.New()}, nil})

	assert.Len(t, idx.For(leadID), 1)
	assert.Len(t, idx.LeadIDs(), 1)
	assert.Nil(t, idx.Latest(uuid.New()))
}
