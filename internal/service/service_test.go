package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/report"
	"github.com/naperu/leadlens/internal/revenue"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAuthService_TokenRoundTrip(t *testing.T) {
	auth := &AuthService{}
	agent := &domain.Agent{ID: uuid.New(), AccountID: uuid.New(), Role: domain.RoleAgent}

	token, err := auth.IssueToken(agent, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, claims.UserID)
	assert.Equal(t, agent.AccountID, claims.AccountID)
	assert.False(t, claims.IsAdmin())
	assert.Equal(t, "leadlens", claims.Issuer)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	auth := &AuthService{}
	agent := &domain.Agent{ID: uuid.New(), AccountID: uuid.New(), Role: domain.RoleAdmin}

	token, err := auth.IssueToken(agent, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = auth.ValidateToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := auth.IssueToken(agent, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = auth.ValidateToken(expired, testSecret)
	assert.Error(t, err)

	_, err = auth.ValidateToken("garbage", testSecret)
	assert.Error(t, err)
}

type serviceFixture struct {
	store   *fakeStore
	svc     *DashboardService
	account uuid.UUID
	admin   *domain.Agent
	ana     *domain.Agent
	bruno   *domain.Agent
	anaLead *domain.Lead
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{store: newFakeStore(), account: uuid.New()}
	f.admin = &domain.Agent{ID: uuid.New(), Name: "Admin", Role: domain.RoleAdmin, IsActive: true}
	f.ana = &domain.Agent{ID: uuid.New(), Name: "Ana", Role: domain.RoleAgent, VisibilityMode: domain.VisibilityPersonal, IsActive: true}
	f.bruno = &domain.Agent{ID: uuid.New(), Name: "Bruno", Role: domain.RoleAgent, VisibilityMode: domain.VisibilityShared, IsActive: true}
	f.store.agents = []*domain.Agent{f.admin, f.ana, f.bruno}

	ad := "ad-9"
	f.anaLead = &domain.Lead{ID: uuid.New(), AdSourceID: &ad, AssignedTo: &f.ana.ID, Status: domain.LeadStatusConverted, CreatedAt: loaderNow.Add(-2 * time.Hour)}
	brunoLead := &domain.Lead{ID: uuid.New(), AssignedTo: &f.bruno.ID, CreatedAt: loaderNow.Add(-time.Hour)}
	yesterdayLead := &domain.Lead{ID: uuid.New(), AssignedTo: &f.bruno.ID, CreatedAt: loaderNow.AddDate(0, 0, -1)}
	f.store.leads = []*domain.Lead{f.anaLead, brunoLead, yesterdayLead}

	confirmed := loaderNow.Add(-30 * time.Minute)
	entryID := uuid.New()
	f.store.commercial = []*domain.CommercialEntry{
		{ID: entryID, LeadID: f.anaLead.ID, Value: decimal.NewFromInt(500), EntryDate: loaderNow.Add(-time.Hour), Status: domain.EntryStatusActive, CreatedBy: &f.ana.ID},
	}
	f.store.receipts = []*domain.ReceiptEntry{
		{ID: uuid.New(), CommercialEntryID: &entryID, Value: decimal.NewFromInt(500), EntryDate: loaderNow.Add(-time.Hour), Status: domain.EntryStatusActive, ConfirmedAt: &confirmed},
	}
	f.store.messages = []*domain.Message{
		{ID: uuid.New(), LeadID: f.anaLead.ID, FromClient: true, Timestamp: f.anaLead.CreatedAt},
		{ID: uuid.New(), LeadID: f.anaLead.ID, SenderID: &f.ana.ID, Timestamp: f.anaLead.CreatedAt.Add(2 * time.Minute)},
	}

	f.svc = NewDashboardService(f.store, Options{Loader: DefaultLoaderConfig(), Revenue: revenue.DefaultOptions()}, logger.NewNop())
	f.svc.SetClock(func() time.Time { return loaderNow })
	return f
}

func (f *serviceFixture) query(agent *domain.Agent) Query {
	return Query{AccountID: f.account, UserID: agent.ID, Token: period.Today}
}

func TestResolveScope(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	scope, err := f.svc.ResolveScope(ctx, f.account, uuid.New(), true)
	require.NoError(t, err)
	assert.False(t, scope.IsPersonal(), "admin claim is always shared")

	scope, err = f.svc.ResolveScope(ctx, f.account, f.ana.ID, false)
	require.NoError(t, err)
	assert.Equal(t, revenue.PersonalScope(f.ana.ID), scope)

	scope, err = f.svc.ResolveScope(ctx, f.account, f.bruno.ID, false)
	require.NoError(t, err)
	assert.False(t, scope.IsPersonal())

	scope, err = f.svc.ResolveScope(ctx, f.account, f.admin.ID, false)
	require.NoError(t, err)
	assert.False(t, scope.IsPersonal())

	_, err = f.svc.ResolveScope(ctx, f.account, uuid.New(), false)
	assert.True(t, domain.IsNotFoundError(err))
}

func TestDashboard_SharedScope(t *testing.T) {
	f := newServiceFixture(t)

	d, err := f.svc.Dashboard(context.Background(), f.query(f.bruno))
	require.NoError(t, err)

	assert.Equal(t, report.DefaultConfig().Enabled(), d.Panels)
	require.NotNil(t, d.Summary)
	assert.Equal(t, 2, d.Summary.Totals.TotalLeads)
	assert.True(t, d.Summary.Totals.Commercial.Total().Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 100.0, d.Summary.ROI)

	require.NotNil(t, d.Today)
	assert.Equal(t, 2.0, d.Today.TotalLeads.Current)
	assert.Equal(t, 1.0, d.Today.TotalLeads.Previous)
	require.NotNil(t, d.Today.TotalLeads.Percent)
	assert.Equal(t, 100, *d.Today.TotalLeads.Percent)

	require.NotNil(t, d.Sources)
	require.NotEmpty(t, d.Sources.Rows)
	assert.Empty(t, d.FailedSources)
}

func TestDashboard_PersonalScope(t *testing.T) {
	f := newServiceFixture(t)

	d, err := f.svc.Dashboard(context.Background(), f.query(f.ana))
	require.NoError(t, err)

	assert.True(t, d.Scope.IsPersonal())
	assert.Equal(t, 1, d.Summary.Totals.TotalLeads)
	assert.True(t, d.Summary.Totals.Receipt.Confirmed.Equal(decimal.NewFromInt(500)))
	for _, row := range d.Agents.Rows {
		assert.Equal(t, f.ana.ID, row.AgentID)
	}
}

func TestDashboard_PartialFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.store.fail["messages"] = assert.AnError

	d, err := f.svc.Dashboard(context.Background(), f.query(f.admin))
	require.NoError(t, err)

	assert.Contains(t, d.FailedSources, string(report.CollectionMessages))
	assert.True(t, d.ResponseTimes.Partial)
	assert.False(t, d.Sources.Partial)
}

func TestDashboard_InvalidCustomPeriod(t *testing.T) {
	f := newServiceFixture(t)
	q := f.query(f.admin)
	q.Token = period.Custom

	_, err := f.svc.Dashboard(context.Background(), q)
	assert.True(t, domain.IsValidationError(err))
}

func TestToday_IgnoresQueryPeriod(t *testing.T) {
	f := newServiceFixture(t)
	q := f.query(f.admin)
	q.Token = period.Last30Days

	today, err := f.svc.Today(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2.0, today.TotalLeads.Current)
}

func TestLeadAttribution(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	detail, err := f.svc.LeadAttribution(ctx, f.query(f.ana), f.anaLead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelMeta, detail.Origin.Channel)
	require.NotNil(t, detail.Primary.ResponseSeconds)
	assert.Equal(t, int64(120), *detail.Primary.ResponseSeconds)

	// shared visibility sees every lead, personal only its own
	_, err = f.svc.LeadAttribution(ctx, f.query(f.bruno), f.anaLead.ID)
	require.NoError(t, err)

	other := &domain.Agent{ID: uuid.New(), Role: domain.RoleAgent, VisibilityMode: domain.VisibilityPersonal}
	f.store.agents = append(f.store.agents, other)
	_, err = f.svc.LeadAttribution(ctx, f.query(other), f.anaLead.ID)
	assert.True(t, domain.IsNotFoundError(err))

	_, err = f.svc.LeadAttribution(ctx, f.query(f.admin), uuid.New())
	assert.True(t, domain.IsNotFoundError(err))
}
