package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/repository"
)

// Store is the read-only query port the engine fetches from.
type Store interface {
	ListLeads(ctx context.Context, accountID uuid.UUID, rng period.Range) ([]*domain.Lead, error)
	ListLeadsByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]*domain.Lead, error)
	ListLinkClicks(ctx context.Context, accountID uuid.UUID, filter repository.ClickFilter) ([]*domain.LinkClick, error)
	ListTrackableLinks(ctx context.Context, accountID uuid.UUID) ([]*domain.TrackableLink, error)
	ListMessages(ctx context.Context, leadIDs []uuid.UUID, since *time.Time) ([]*domain.Message, error)
	ListCommercialEntries(ctx context.Context, accountID uuid.UUID, filter repository.EntryFilter) ([]*domain.CommercialEntry, error)
	ListReceiptEntries(ctx context.Context, accountID uuid.UUID, filter repository.ReceiptFilter) ([]*domain.ReceiptEntry, error)
	ListSources(ctx context.Context, accountID uuid.UUID) ([]*domain.LeadSource, error)
	ListAgents(ctx context.Context, accountID uuid.UUID, roles []string) ([]*domain.Agent, error)
}
