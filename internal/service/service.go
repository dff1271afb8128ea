package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/report"
	"github.com/naperu/leadlens/internal/responsetime"
	"github.com/naperu/leadlens/internal/revenue"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/naperu/leadlens/pkg/metrics"
	"github.com/rotisserie/eris"
)

type Services struct {
	Auth      *AuthService
	Dashboard *DashboardService
}

// Options configures the service layer
type Options struct {
	Loader   LoaderConfig
	Revenue  revenue.Options
	Panels   report.Config
	Location *time.Location
}

func NewServices(store Store, opts Options, log logger.Logger) *Services {
	if log == nil {
		log = logger.NewNop()
	}
	return &Services{
		Auth:      &AuthService{},
		Dashboard: NewDashboardService(store, opts, log),
	}
}

// AuthService issues and validates access tokens
type AuthService struct{}

type JWTClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	AccountID uuid.UUID `json:"account_id"`
	Role      string    `json:"role"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

func (s *AuthService) IssueToken(agent *domain.Agent, jwtSecret string, ttl time.Duration) (string, error) {
	claims := &JWTClaims{
		UserID:    agent.ID,
		AccountID: agent.AccountID,
		Role:      agent.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "leadlens",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *AuthService) ValidateToken(tokenString, jwtSecret string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Query identifies who is asking for which period
type Query struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
	IsAdmin   bool
	Token     period.Token
	Custom    *period.CustomDates
	// Location overrides the account calendar. Nil uses the service default.
	Location *time.Location
}

// DashboardService answers dashboard queries. Each call fetches its own
// dataset; nothing is kept between calls.
type DashboardService struct {
	store      Store
	loader     *Loader
	reconciler *revenue.Reconciler
	panels     report.Config
	loc        *time.Location
	now        func() time.Time
	log        logger.Logger
}

func NewDashboardService(store Store, opts Options, log logger.Logger) *DashboardService {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.Panels.Panels) == 0 {
		opts.Panels = report.DefaultConfig()
	}
	return &DashboardService{
		store:      store,
		loader:     NewLoader(store, opts.Loader, log),
		reconciler: revenue.NewReconciler(opts.Revenue, log),
		panels:     opts.Panels,
		loc:        opts.Location,
		now:        time.Now,
		log:        log.With("component", "dashboard"),
	}
}

// SetClock replaces the time source.
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

// Panels returns the configured panel layout
func (s *DashboardService) Panels() report.Config {
	return s.panels
}

// ResolveScope decides what the requesting user may see. Admins always
// see the shared view; agents follow their visibility mode.
func (s *DashboardService) ResolveScope(ctx context.Context, accountID, userID uuid.UUID, isAdmin bool) (revenue.Scope, error) {
	if isAdmin {
		return revenue.SharedScope(), nil
	}
	agents, err := s.store.ListAgents(ctx, accountID, nil)
	if err != nil {
		return revenue.Scope{}, domain.NewInternalError("failed to resolve visibility", eris.Wrap(err, "list agents"))
	}
	for _, a := range agents {
		if a.ID != userID {
			continue
		}
		if a.IsAdmin() {
			return revenue.SharedScope(), nil
		}
		if a.VisibilityMode == domain.VisibilityPersonal {
			return revenue.PersonalScope(a.ID), nil
		}
		return revenue.SharedScope(), nil
	}
	return revenue.Scope{}, domain.NewNotFoundError("user")
}

type request struct {
	scope revenue.Scope
	rng   period.Range
	now   time.Time
}

func (s *DashboardService) resolve(ctx context.Context, q Query) (*request, error) {
	loc := q.Location
	if loc == nil {
		loc = s.loc
	}
	now := s.now().In(loc)
	token := q.Token
	if token == "" {
		token = period.Today
	}
	rng, err := period.Resolve(token, now, q.Custom)
	if err != nil {
		return nil, err
	}
	scope, err := s.ResolveScope(ctx, q.AccountID, q.UserID, q.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &request{scope: scope, rng: rng, now: now}, nil
}

// builder loads rng and prepares a report builder over it.
func (s *DashboardService) builder(ctx context.Context, accountID uuid.UUID, rng period.Range) *report.Builder {
	loaded := s.loader.Load(ctx, accountID, rng)
	return s.prepare(loaded)
}

func (s *DashboardService) prepare(loaded *Loaded) *report.Builder {
	ix := s.reconciler.Prepare(loaded.Dataset)
	recordAnomalies(ix.Anomalies())
	return report.NewBuilder(ix, responsetime.NewMessageIndex(loaded.Dataset.Messages), loaded.Failures, s.log)
}

func recordAnomalies(a revenue.Anomalies) {
	for kind, n := range map[string]int{
		"orphan_commercial": a.OrphanCommercial,
		"orphan_receipt":    a.OrphanReceipts,
		"unbound_receipt":   a.UnboundReceipts,
		"inferred_link":     a.InferredLinks,
		"orphan_click":      a.OrphanClicks,
		"orphan_message":    a.OrphanMessages,
	} {
		if n > 0 {
			metrics.Anomalies.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// withToday widens rng so that today and yesterday are covered as well.
func withToday(rng period.Range, now time.Time) period.Range {
	yesterday, _ := period.Resolve(period.Yesterday, now, nil)
	return period.Union(rng, period.Range{Start: yesterday.Start})
}

func (s *DashboardService) Dashboard(ctx context.Context, q Query) (*report.Dashboard, error) {
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	load := req.rng
	if s.panels.IsEnabled(report.PanelToday) {
		load = withToday(req.rng, req.now)
	}
	b := s.builder(ctx, q.AccountID, load)
	d := b.Dashboard(s.panels, req.scope, req.rng, req.now)
	if len(d.FailedSources) > 0 {
		s.log.Warn("dashboard served with partial data", "account_id", q.AccountID, "failed", d.FailedSources)
	}
	return d, nil
}

func (s *DashboardService) Summary(ctx context.Context, q Query) (*report.SummarySection, error) {
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder(ctx, q.AccountID, req.rng).Summary(req.scope, req.rng), nil
}

func (s *DashboardService) Sources(ctx context.Context, q Query) (*report.SourceSection, error) {
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder(ctx, q.AccountID, req.rng).Sources(req.scope, req.rng), nil
}

func (s *DashboardService) Agents(ctx context.Context, q Query) (*report.AgentSection, error) {
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder(ctx, q.AccountID, req.rng).Agents(req.scope, req.rng), nil
}

func (s *DashboardService) Daily(ctx context.Context, q Query) (*report.DailySection, error) {
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder(ctx, q.AccountID, req.rng).Daily(req.scope, req.rng, req.now), nil
}

// Today ignores the query period; it always compares today with yesterday.
func (s *DashboardService) Today(ctx context.Context, q Query) (*report.TodaySection, error) {
	q.Token = period.Today
	q.Custom = nil
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder(ctx, q.AccountID, withToday(req.rng, req.now)).Today(req.scope, req.now), nil
}

func (s *DashboardService) ResponseTimes(ctx context.Context, q Query) (*report.ResponseSection, error) {
	req, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder(ctx, q.AccountID, req.rng).ResponseTimes(req.scope, req.rng), nil
}

// Refresh drops cached reference data of an account so the next query
// reads sources, links and agents from the database again.
func (s *DashboardService) Refresh(ctx context.Context, accountID uuid.UUID) error {
	inv, ok := s.store.(interface {
		Invalidate(ctx context.Context, accountID uuid.UUID) error
	})
	if !ok {
		return nil
	}
	if err := inv.Invalidate(ctx, accountID); err != nil {
		return domain.NewInternalError("failed to refresh cache", err)
	}
	s.log.Info("reference cache cleared", "account_id", accountID)
	return nil
}

// LeadAttribution explains the origin and response times of one lead.
func (s *DashboardService) LeadAttribution(ctx context.Context, q Query, leadID uuid.UUID) (*report.LeadDetail, error) {
	scope, err := s.ResolveScope(ctx, q.AccountID, q.UserID, q.IsAdmin)
	if err != nil {
		return nil, err
	}
	loaded := s.loader.LoadLead(ctx, q.AccountID, leadID)
	if err, failed := loaded.Failures[report.CollectionLeads]; failed {
		return nil, domain.NewInternalError("failed to load lead", err)
	}
	detail, ok := s.prepare(loaded).Lead(leadID, scope)
	if !ok {
		return nil, domain.NewNotFoundError("lead")
	}
	return detail, nil
}
