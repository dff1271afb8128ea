package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel is the acquisition channel a lead is attributed to
type Channel string

// Channel constants, in classification priority order
const (
	ChannelMeta    Channel = "meta"
	ChannelLink    Channel = "link"
	ChannelSource  Channel = "source"
	ChannelOrganic Channel = "organic"
)

// Channels lists every channel in priority order.
var Channels = []Channel{ChannelMeta, ChannelLink, ChannelSource, ChannelOrganic}

// Lead status constants
const (
	LeadStatusNew        = "new"
	LeadStatusInProgress = "in_progress"
	LeadStatusScheduled  = "scheduled"
	LeadStatusConverted  = "converted"
	LeadStatusRecurring  = "recurring"
	LeadStatusLost       = "lost"
)

// Lead represents a conversational lead (one chat with a prospective client)
type Lead struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Name         *string    `json:"name,omitempty"`
	Status       string     `json:"status"`
	AdSourceID   *string    `json:"ad_source_id,omitempty"`
	SourceID     *uuid.UUID `json:"source_id,omitempty"`
	CampaignName *string    `json:"campaign_name,omitempty"`
	AdName       *string    `json:"ad_name,omitempty"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	IsGroup      bool       `json:"is_group"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasAdSource reports whether the lead came in through a paid ad.
func (l *Lead) HasAdSource() bool {
	return l.AdSourceID != nil && strings.TrimSpace(*l.AdSourceID) != ""
}

// IsConverted reports whether the lead became a paying client.
// Recurring clients were converted at some point, so they count too.
func (l *Lead) IsConverted() bool {
	return l.Status == LeadStatusConverted || l.Status == LeadStatusRecurring
}

// IsAssignedTo reports whether the lead belongs to the given agent
func (l *Lead) IsAssignedTo(agentID uuid.UUID) bool {
	return l.AssignedTo != nil && *l.AssignedTo == agentID
}

// TrackableLink is a short link that tags leads with a source when clicked
type TrackableLink struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Code      string    `json:"code"`
	SourceID  uuid.UUID `json:"source_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkClick records a click on a trackable link
type LinkClick struct {
	ID          uuid.UUID  `json:"id"`
	LinkID      uuid.UUID  `json:"link_id"`
	LeadID      *uuid.UUID `json:"lead_id,omitempty"`
	ClickedAt   time.Time  `json:"clicked_at"`
	UTMSource   *string    `json:"utm_source,omitempty"`
	UTMMedium   *string    `json:"utm_medium,omitempty"`
	UTMCampaign *string    `json:"utm_campaign,omitempty"`
	UTMContent  *string    `json:"utm_content,omitempty"`
	UTMTerm     *string    `json:"utm_term,omitempty"`
}

// Message is a single chat message. FromClient is true for inbound messages.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	LeadID     uuid.UUID  `json:"lead_id"`
	FromClient bool       `json:"from_client"`
	SenderID   *uuid.UUID `json:"sender_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Entry status constants, shared by both ledgers
const (
	EntryStatusActive    = "active"
	EntryStatusCancelled = "cancelled"
)

// CommercialEntry is a sale recorded by an agent
type CommercialEntry struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	LeadID      uuid.UUID       `json:"lead_id"`
	Value       decimal.Decimal `json:"value"`
	EntryDate   time.Time       `json:"entry_date"`
	Status      string          `json:"status"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}

func (e *CommercialEntry) IsCancelled() bool { return e.Status == EntryStatusCancelled }
func (e *CommercialEntry) IsConfirmed() bool { return e.ConfirmedAt != nil }

// ReceiptEntry is money received, recorded by the back office. It either
// points at the commercial entry it pays for or, as a direct entry, at a lead.
type ReceiptEntry struct {
	ID                uuid.UUID       `json:"id"`
	AccountID         uuid.UUID       `json:"account_id"`
	CommercialEntryID *uuid.UUID      `json:"commercial_entry_id,omitempty"`
	LeadID            *uuid.UUID      `json:"lead_id,omitempty"`
	Value             decimal.Decimal `json:"value"`
	EntryDate         time.Time       `json:"entry_date"`
	Status            string          `json:"status"`
	ConfirmedAt       *time.Time      `json:"confirmed_at,omitempty"`
}

func (e *ReceiptEntry) IsCancelled() bool { return e.Status == EntryStatusCancelled }
func (e *ReceiptEntry) IsConfirmed() bool { return e.ConfirmedAt != nil }

// IsDirect reports whether the receipt has no commercial counterpart.
func (e *ReceiptEntry) IsDirect() bool { return e.CommercialEntryID == nil }

// SourceTag groups sources on the dashboard
type SourceTag struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// LeadSource is a named acquisition source configured by the account
type LeadSource struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	Name      string     `json:"name"`
	Code      *string    `json:"code,omitempty"`
	Color     string     `json:"color"`
	Tag       *SourceTag `json:"tag,omitempty"`
}

// User role constants
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Visibility mode constants
const (
	VisibilityPersonal = "personal"
	VisibilityShared   = "shared"
)

// Agent is a user that handles leads
type Agent struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	VisibilityMode string    `json:"visibility_mode"`
	IsActive       bool      `json:"is_active"`
}

// IsAdmin reports whether the agent administers the account
func (a *Agent) IsAdmin() bool {
	return a.Role == RoleAdmin
}
