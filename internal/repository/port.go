package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
)

// The methods below expose the repositories as one query port.

func (r *Repositories) ListLeads(ctx context.Context, accountID uuid.UUID, rng period.Range) ([]*domain.Lead, error) {
	return r.Lead.GetCreatedIn(ctx, accountID, rng)
}

func (r *Repositories) ListLeadsByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]*domain.Lead, error) {
	return r.Lead.GetByIDs(ctx, accountID, ids)
}

func (r *Repositories) ListLinkClicks(ctx context.Context, accountID uuid.UUID, filter ClickFilter) ([]*domain.LinkClick, error) {
	return r.Click.List(ctx, accountID, filter)
}

func (r *Repositories) ListTrackableLinks(ctx context.Context, accountID uuid.UUID) ([]*domain.TrackableLink, error) {
	return r.Link.GetByAccountID(ctx, accountID)
}

func (r *Repositories) ListMessages(ctx context.Context, leadIDs []uuid.UUID, since *time.Time) ([]*domain.Message, error) {
	return r.Message.GetByLeadIDs(ctx, leadIDs, since)
}

func (r *Repositories) ListCommercialEntries(ctx context.Context, accountID uuid.UUID, filter EntryFilter) ([]*domain.CommercialEntry, error) {
	return r.Commercial.List(ctx, accountID, filter)
}

func (r *Repositories) ListReceiptEntries(ctx context.Context, accountID uuid.UUID, filter ReceiptFilter) ([]*domain.ReceiptEntry, error) {
	return r.Receipt.List(ctx, accountID, filter)
}

func (r *Repositories) ListSources(ctx context.Context, accountID uuid.UUID) ([]*domain.LeadSource, error) {
	return r.Source.GetByAccountID(ctx, accountID)
}

func (r *Repositories) ListAgents(ctx context.Context, accountID uuid.UUID, roles []string) ([]*domain.Agent, error) {
	return r.Agent.GetByAccountID(ctx, accountID, roles)
}
