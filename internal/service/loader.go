package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/period"
	"github.com/naperu/leadlens/internal/report"
	"github.com/naperu/leadlens/internal/repository"
	"github.com/naperu/leadlens/internal/revenue"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/naperu/leadlens/pkg/metrics"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// LoaderConfig tunes the fetch pipeline
type LoaderConfig struct {
	ChunkSize   int
	Concurrency int
	Timeout     time.Duration
	// MessageLookback widens the message window before the period start so
	// inbound messages just ahead of a click are still seen.
	MessageLookback time.Duration
}

func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		ChunkSize:       50,
		Concurrency:     8,
		Timeout:         20 * time.Second,
		MessageLookback: 24 * time.Hour,
	}
}

// Loaded is the raw material of one report
type Loaded struct {
	Dataset  *revenue.Dataset
	Failures report.Failures
}

// Loader fetches everything a report needs in two concurrent waves. A
// failed fetch leaves its collection empty and is recorded in Failures;
// it never cancels its siblings.
type Loader struct {
	store Store
	cfg   LoaderConfig
	log   logger.Logger
}

func NewLoader(store Store, cfg LoaderConfig, log logger.Logger) *Loader {
	def := DefaultLoaderConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{store: store, cfg: cfg, log: log.With("component", "loader")}
}

// fetch runs fn, timing it and turning a failure into a recorded error.
func fetch[T any](ctx context.Context, l *Loader, coll report.Collection, fn func(context.Context) ([]T, error)) ([]T, error) {
	start := time.Now()
	out, err := fn(ctx)
	metrics.FetchDuration.WithLabelValues(string(coll)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchFailures.WithLabelValues(string(coll)).Inc()
		err = eris.Wrapf(err, "fetch %s", coll)
		l.log.Warn("fetch failed", "collection", string(coll), "error", err.Error())
		return nil, err
	}
	return out, nil
}

// fetchChunked splits ids into chunks and fetches them concurrently. Each
// chunk writes only its own slot; the slots are merged once all are done.
func fetchChunked[T any](ctx context.Context, l *Loader, coll report.Collection, ids []uuid.UUID, fn func(context.Context, []uuid.UUID) ([]T, error)) ([]T, error) {
	chunks := chunk(ids, l.cfg.ChunkSize)
	results := make([][]T, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(l.cfg.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			results[i], errs[i] = fetch(ctx, l, coll, func(ctx context.Context) ([]T, error) { return fn(ctx, c) })
			return nil
		})
	}
	_ = g.Wait()

	var out []T
	var firstErr error
	for i := range chunks {
		if errs[i] != nil && firstErr == nil {
			firstErr = errs[i]
		}
		out = append(out, results[i]...)
	}
	return out, firstErr
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Load fetches the dataset for a period.
func (l *Loader) Load(ctx context.Context, accountID uuid.UUID, rng period.Range) *Loaded {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	var (
		leads      []*domain.Lead
		clicks     []*domain.LinkClick
		links      []*domain.TrackableLink
		commercial []*domain.CommercialEntry
		receipts   []*domain.ReceiptEntry
		sources    []*domain.LeadSource
		agents     []*domain.Agent

		leadsErr, clicksErr, linksErr, commercialErr, receiptsErr, sourcesErr, agentsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		leads, leadsErr = fetch(ctx, l, report.CollectionLeads, func(ctx context.Context) ([]*domain.Lead, error) {
			return l.store.ListLeads(ctx, accountID, rng)
		})
		return nil
	})
	g.Go(func() error {
		clicks, clicksErr = fetch(ctx, l, report.CollectionClicks, func(ctx context.Context) ([]*domain.LinkClick, error) {
			return l.store.ListLinkClicks(ctx, accountID, repository.ClickFilter{Range: &rng})
		})
		return nil
	})
	g.Go(func() error {
		links, linksErr = fetch(ctx, l, report.CollectionLinks, func(ctx context.Context) ([]*domain.TrackableLink, error) {
			return l.store.ListTrackableLinks(ctx, accountID)
		})
		return nil
	})
	g.Go(func() error {
		commercial, commercialErr = fetch(ctx, l, report.CollectionCommercial, func(ctx context.Context) ([]*domain.CommercialEntry, error) {
			return l.store.ListCommercialEntries(ctx, accountID, repository.EntryFilter{Range: &rng})
		})
		return nil
	})
	g.Go(func() error {
		receipts, receiptsErr = fetch(ctx, l, report.CollectionReceipts, func(ctx context.Context) ([]*domain.ReceiptEntry, error) {
			return l.store.ListReceiptEntries(ctx, accountID, repository.ReceiptFilter{Range: &rng})
		})
		return nil
	})
	g.Go(func() error {
		sources, sourcesErr = fetch(ctx, l, report.CollectionSources, func(ctx context.Context) ([]*domain.LeadSource, error) {
			return l.store.ListSources(ctx, accountID)
		})
		return nil
	})
	g.Go(func() error {
		agents, agentsErr = fetch(ctx, l, report.CollectionAgents, func(ctx context.Context) ([]*domain.Agent, error) {
			return l.store.ListAgents(ctx, accountID, nil)
		})
		return nil
	})
	_ = g.Wait()

	// Second wave: lookups keyed by ids the first wave discovered.
	known := make(map[uuid.UUID]struct{}, len(leads))
	for _, ld := range leads {
		known[ld.ID] = struct{}{}
	}
	var missing []uuid.UUID
	want := func(id uuid.UUID) {
		if _, ok := known[id]; !ok {
			known[id] = struct{}{}
			missing = append(missing, id)
		}
	}
	for _, c := range clicks {
		if c.LeadID != nil {
			want(*c.LeadID)
		}
	}
	for _, e := range commercial {
		want(e.LeadID)
	}
	for _, rc := range receipts {
		if rc.IsDirect() && rc.LeadID != nil {
			want(*rc.LeadID)
		}
	}

	candidates := make([]uuid.UUID, 0, len(leads))
	for _, ld := range leads {
		candidates = append(candidates, ld.ID)
	}
	for _, c := range clicks {
		if c.LeadID != nil {
			candidates = append(candidates, *c.LeadID)
		}
	}
	candidates = uniqueIDs(candidates)

	commercialIDs := make([]uuid.UUID, 0, len(commercial))
	for _, e := range commercial {
		commercialIDs = append(commercialIDs, e.ID)
	}

	since := rng.Start.Add(-l.cfg.MessageLookback)

	var (
		extraLeads    []*domain.Lead
		leadClicks    []*domain.LinkClick
		linked        []*domain.ReceiptEntry
		messages      []*domain.Message
		extraLeadsErr error
		leadClicksErr error
		linkedErr     error
		messagesErr   error
	)

	var g2 errgroup.Group
	g2.Go(func() error {
		extraLeads, extraLeadsErr = fetchChunked(ctx, l, report.CollectionLeads, missing, func(ctx context.Context, ids []uuid.UUID) ([]*domain.Lead, error) {
			return l.store.ListLeadsByIDs(ctx, accountID, ids)
		})
		return nil
	})
	g2.Go(func() error {
		leadClicks, leadClicksErr = fetchChunked(ctx, l, report.CollectionClicks, candidates, func(ctx context.Context, ids []uuid.UUID) ([]*domain.LinkClick, error) {
			return l.store.ListLinkClicks(ctx, accountID, repository.ClickFilter{LeadIDs: ids})
		})
		return nil
	})
	g2.Go(func() error {
		linked, linkedErr = fetchChunked(ctx, l, report.CollectionReceipts, commercialIDs, func(ctx context.Context, ids []uuid.UUID) ([]*domain.ReceiptEntry, error) {
			return l.store.ListReceiptEntries(ctx, accountID, repository.ReceiptFilter{CommercialEntryIDs: ids})
		})
		return nil
	})
	g2.Go(func() error {
		messages, messagesErr = fetchChunked(ctx, l, report.CollectionMessages, candidates, func(ctx context.Context, ids []uuid.UUID) ([]*domain.Message, error) {
			return l.store.ListMessages(ctx, ids, &since)
		})
		return nil
	})
	_ = g2.Wait()

	failures := report.Failures{}
	record := func(coll report.Collection, errs ...error) {
		for _, err := range errs {
			if err != nil {
				failures[coll] = err
				return
			}
		}
	}
	record(report.CollectionLeads, leadsErr, extraLeadsErr)
	record(report.CollectionClicks, clicksErr, leadClicksErr)
	record(report.CollectionLinks, linksErr)
	record(report.CollectionCommercial, commercialErr)
	record(report.CollectionReceipts, receiptsErr, linkedErr)
	record(report.CollectionSources, sourcesErr)
	record(report.CollectionAgents, agentsErr)
	record(report.CollectionMessages, messagesErr)

	l.log.Debug("dataset loaded",
		"account_id", accountID,
		"period", rng.String(),
		"leads", len(leads)+len(extraLeads),
		"commercial", len(commercial),
		"receipts", len(receipts)+len(linked),
		"messages", len(messages),
		"failed", failures.Names(),
	)

	return &Loaded{
		Dataset: &revenue.Dataset{
			Leads:      append(leads, extraLeads...),
			Links:      links,
			Clicks:     append(clicks, leadClicks...),
			Sources:    sources,
			Commercial: commercial,
			Receipts:   append(receipts, linked...),
			Agents:     agents,
			Messages:   messages,
		},
		Failures: failures,
	}
}

// LoadLead fetches one lead with its full click and message history.
func (l *Loader) LoadLead(ctx context.Context, accountID, leadID uuid.UUID) *Loaded {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	ids := []uuid.UUID{leadID}
	var (
		leads    []*domain.Lead
		clicks   []*domain.LinkClick
		links    []*domain.TrackableLink
		sources  []*domain.LeadSource
		messages []*domain.Message

		leadsErr, clicksErr, linksErr, sourcesErr, messagesErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		leads, leadsErr = fetch(ctx, l, report.CollectionLeads, func(ctx context.Context) ([]*domain.Lead, error) {
			return l.store.ListLeadsByIDs(ctx, accountID, ids)
		})
		return nil
	})
	g.Go(func() error {
		clicks, clicksErr = fetch(ctx, l, report.CollectionClicks, func(ctx context.Context) ([]*domain.LinkClick, error) {
			return l.store.ListLinkClicks(ctx, accountID, repository.ClickFilter{LeadIDs: ids})
		})
		return nil
	})
	g.Go(func() error {
		links, linksErr = fetch(ctx, l, report.CollectionLinks, func(ctx context.Context) ([]*domain.TrackableLink, error) {
			return l.store.ListTrackableLinks(ctx, accountID)
		})
		return nil
	})
	g.Go(func() error {
		sources, sourcesErr = fetch(ctx, l, report.CollectionSources, func(ctx context.Context) ([]*domain.LeadSource, error) {
			return l.store.ListSources(ctx, accountID)
		})
		return nil
	})
	g.Go(func() error {
		messages, messagesErr = fetch(ctx, l, report.CollectionMessages, func(ctx context.Context) ([]*domain.Message, error) {
			return l.store.ListMessages(ctx, ids, nil)
		})
		return nil
	})
	_ = g.Wait()

	failures := report.Failures{}
	for coll, err := range map[report.Collection]error{
		report.CollectionLeads:    leadsErr,
		report.CollectionClicks:   clicksErr,
		report.CollectionLinks:    linksErr,
		report.CollectionSources:  sourcesErr,
		report.CollectionMessages: messagesErr,
	} {
		if err != nil {
			failures[coll] = err
		}
	}

	return &Loaded{
		Dataset: &revenue.Dataset{
			Leads:    leads,
			Clicks:   clicks,
			Links:    links,
			Sources:  sources,
			Messages: messages,
		},
		Failures: failures,
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
