package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/shopspring/decimal"
)

type Repositories struct {
	db         *pgxpool.Pool
	Lead       *LeadRepository
	Click      *ClickRepository
	Link       *LinkRepository
	Message    *MessageRepository
	Commercial *CommercialRepository
	Receipt    *ReceiptRepository
	Source     *SourceRepository
	Agent      *AgentRepository
}

func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		db:         db,
		Lead:       &LeadRepository{db: db},
		Click:      &ClickRepository{db: db},
		Link:       &LinkRepository{db: db},
		Message:    &MessageRepository{db: db},
		Commercial: &CommercialRepository{db: db},
		Receipt:    &ReceiptRepository{db: db},
		Source:     &SourceRepository{db: db},
		Agent:      &AgentRepository{db: db},
	}
}

// DB returns the underlying database pool.
func (r *Repositories) DB() *pgxpool.Pool {
	return r.db
}

// ClickFilter narrows a click listing. Empty fields do not filter.
type ClickFilter struct {
	Range   *period.Range
	LeadIDs []uuid.UUID
}

// EntryFilter narrows a commercial entry listing by entry date or lead.
type EntryFilter struct {
	Range   *period.Range
	LeadIDs []uuid.UUID
}

// ReceiptFilter narrows a receipt listing by entry date, linked commercial
// entry or lead.
type ReceiptFilter struct {
	Range              *period.Range
	CommercialEntryIDs []uuid.UUID
	LeadIDs            []uuid.UUID
}

// whereRange appends a half-open range condition on column.
func whereRange(query string, args []interface{}, argNum int, column string, rng *period.Range) (string, []interface{}, int) {
	if rng == nil {
		return query, args, argNum
	}
	query += fmt.Sprintf(" AND %s >= $%d", column, argNum)
	args = append(args, rng.Start)
	argNum++
	if rng.End != nil {
		query += fmt.Sprintf(" AND %s < $%d", column, argNum)
		args = append(args, *rng.End)
		argNum++
	}
	return query, args, argNum
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// LeadRepository handles lead data access
type LeadRepository struct {
	db *pgxpool.Pool
}

const leadColumns = `l.id, l.account_id, l.name, l.status, l.ad_source_id, l.source_id, l.campaign_name, l.ad_name,
		       l.assigned_to, l.is_group, l.created_at`

func scanLeads(rows pgx.Rows) ([]*domain.Lead, error) {
	defer rows.Close()
	var leads []*domain.Lead
	for rows.Next() {
		lead := &domain.Lead{}
		if err := rows.Scan(
			&lead.ID, &lead.AccountID, &lead.Name, &lead.Status, &lead.AdSourceID, &lead.SourceID, &lead.CampaignName,
			&lead.AdName, &lead.AssignedTo, &lead.IsGroup, &lead.CreatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// GetCreatedIn lists the leads created inside rng.
func (r *LeadRepository) GetCreatedIn(ctx context.Context, accountID uuid.UUID, rng period.Range) ([]*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads l WHERE l.account_id = $1`
	query, args, _ := whereRange(query, []interface{}{accountID}, 2, "l.created_at", &rng)
	rows, err := r.db.Query(ctx, query+" ORDER BY l.created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return scanLeads(rows)
}

func (r *LeadRepository) GetByIDs(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]*domain.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.account_id = $1 AND l.id = ANY($2)`, accountID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get leads by ids: %w", err)
	}
	return scanLeads(rows)
}

func (r *LeadRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*domain.Lead, error) {
	lead := &domain.Lead{}
	err := r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.account_id = $1 AND l.id = $2`, accountID, id).Scan(
		&lead.ID, &lead.AccountID, &lead.Name, &lead.Status, &lead.AdSourceID, &lead.SourceID, &lead.CampaignName,
		&lead.AdName, &lead.AssignedTo, &lead.IsGroup, &lead.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return lead, err
}

// ClickRepository handles trackable link clicks
type ClickRepository struct {
	db *pgxpool.Pool
}

func (r *ClickRepository) List(ctx context.Context, accountID uuid.UUID, filter ClickFilter) ([]*domain.LinkClick, error) {
	query := `
		SELECT lc.id, lc.link_id, lc.lead_id, lc.clicked_at, lc.utm_source, lc.utm_medium, lc.utm_campaign, lc.utm_content, lc.utm_term
		FROM link_clicks lc
		JOIN trackable_links tl ON tl.id = lc.link_id
		WHERE tl.account_id = $1`
	args := []interface{}{accountID}
	argNum := 2

	query, args, argNum = whereRange(query, args, argNum, "lc.clicked_at", filter.Range)
	if len(filter.LeadIDs) > 0 {
		query += fmt.Sprintf(" AND lc.lead_id = ANY($%d)", argNum)
		args = append(args, filter.LeadIDs)
	}

	rows, err := r.db.Query(ctx, query+" ORDER BY lc.clicked_at", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []*domain.LinkClick
	for rows.Next() {
		c := &domain.LinkClick{}
		if err := rows.Scan(&c.ID, &c.LinkID, &c.LeadID, &c.ClickedAt, &c.UTMSource, &c.UTMMedium, &c.UTMCampaign, &c.UTMContent, &c.UTMTerm); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

// LinkRepository handles trackable links
type LinkRepository struct {
	db *pgxpool.Pool
}

func (r *LinkRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*domain.TrackableLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, code, source_id, created_at
		FROM trackable_links WHERE account_id = $1 ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackable links: %w", err)
	}
	defer rows.Close()

	var links []*domain.TrackableLink
	for rows.Next() {
		l := &domain.TrackableLink{}
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Code, &l.SourceID, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// MessageRepository handles chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// GetByLeadIDs lists messages of many leads at once, ordered per lead by
// time. A nil since returns the full history.
func (r *MessageRepository) GetByLeadIDs(ctx context.Context, leadIDs []uuid.UUID, since *time.Time) ([]*domain.Message, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, lead_id, from_client, sender_id, sent_at FROM messages WHERE lead_id = ANY($1)`
	args := []interface{}{leadIDs}
	if since != nil {
		query += " AND sent_at >= $2"
		args = append(args, *since)
	}

	rows, err := r.db.Query(ctx, query+" ORDER BY lead_id, sent_at", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.LeadID, &m.FromClient, &m.SenderID, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CommercialRepository handles the sales ledger
type CommercialRepository struct {
	db *pgxpool.Pool
}

// List returns active commercial entries; cancelled ones never leave the store.
func (r *CommercialRepository) List(ctx context.Context, accountID uuid.UUID, filter EntryFilter) ([]*domain.CommercialEntry, error) {
	query := `
		SELECT id, account_id, lead_id, value::text, entry_date, status, created_by, confirmed_at
		FROM commercial_entries
		WHERE account_id = $1 AND status <> 'cancelled'`
	args := []interface{}{accountID}
	argNum := 2

	query, args, argNum = whereRange(query, args, argNum, "entry_date", filter.Range)
	if len(filter.LeadIDs) > 0 {
		query += fmt.Sprintf(" AND lead_id = ANY($%d)", argNum)
		args = append(args, filter.LeadIDs)
	}

	rows, err := r.db.Query(ctx, query+" ORDER BY entry_date", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list commercial entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.CommercialEntry
	for rows.Next() {
		e := &domain.CommercialEntry{}
		var value string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.LeadID, &value, &e.EntryDate, &e.Status, &e.CreatedBy, &e.ConfirmedAt); err != nil {
			return nil, err
		}
		if e.Value, err = parseMoney(value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReceiptRepository handles the receipts ledger
type ReceiptRepository struct {
	db *pgxpool.Pool
}

func (r *ReceiptRepository) List(ctx context.Context, accountID uuid.UUID, filter ReceiptFilter) ([]*domain.ReceiptEntry, error) {
	query := `
		SELECT id, account_id, commercial_entry_id, lead_id, value::text, entry_date, status, confirmed_at
		FROM receipt_entries
		WHERE account_id = $1 AND status <> 'cancelled'`
	args := []interface{}{accountID}
	argNum := 2

	query, args, argNum = whereRange(query, args, argNum, "entry_date", filter.Range)
	if len(filter.CommercialEntryIDs) > 0 {
		query += fmt.Sprintf(" AND commercial_entry_id = ANY($%d)", argNum)
		args = append(args, filter.CommercialEntryIDs)
		argNum++
	}
	if len(filter.LeadIDs) > 0 {
		query += fmt.Sprintf(" AND lead_id = ANY($%d)", argNum)
		args = append(args, filter.LeadIDs)
	}

	rows, err := r.db.Query(ctx, query+" ORDER BY entry_date", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipt entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ReceiptEntry
	for rows.Next() {
		e := &domain.ReceiptEntry{}
		var value string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.CommercialEntryID, &e.LeadID, &value, &e.EntryDate, &e.Status, &e.ConfirmedAt); err != nil {
			return nil, err
		}
		if e.Value, err = parseMoney(value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SourceRepository handles lead sources and their tags
type SourceRepository struct {
	db *pgxpool.Pool
}

func (r *SourceRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]*domain.LeadSource, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.account_id, s.name, s.code, s.color, t.name, t.color
		FROM lead_sources s
		LEFT JOIN source_tags t ON t.id = s.tag_id
		WHERE s.account_id = $1 ORDER BY s.name
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*domain.LeadSource
	for rows.Next() {
		s := &domain.LeadSource{}
		var tagName, tagColor *string
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Name, &s.Code, &s.Color, &tagName, &tagColor); err != nil {
			return nil, err
		}
		if tagName != nil {
			s.Tag = &domain.SourceTag{Name: *tagName}
			if tagColor != nil {
				s.Tag.Color = *tagColor
			}
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// AgentRepository reads the users that handle leads
type AgentRepository struct {
	db *pgxpool.Pool
}

// GetByAccountID lists active users; an empty roles slice lists every role.
func (r *AgentRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, roles []string) ([]*domain.Agent, error) {
	query := `
		SELECT id, account_id, COALESCE(display_name, username), role, visibility_mode, is_active
		FROM users WHERE account_id = $1 AND is_active = TRUE`
	args := []interface{}{accountID}
	if len(roles) > 0 {
		query += " AND role = ANY($2)"
		args = append(args, roles)
	}

	rows, err := r.db.Query(ctx, query+" ORDER BY display_name", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		a := &domain.Agent{}
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Name, &a.Role, &a.VisibilityMode, &a.IsActive); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}
