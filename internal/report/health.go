package report

import "sort"

// Collection names one fetched input of a report
type Collection string

const (
	CollectionLeads      Collection = "leads"
	CollectionClicks     Collection = "clicks"
	CollectionLinks      Collection = "trackable_links"
	CollectionSources    Collection = "sources"
	CollectionCommercial Collection = "commercial_entries"
	CollectionReceipts   Collection = "receipt_entries"
	CollectionAgents     Collection = "agents"
	CollectionMessages   Collection = "messages"
)

// Failures records which collections could not be fetched
type Failures map[Collection]error

// Health tells a reader whether a section's zeros can be trusted
type Health struct {
	Partial       bool     `json:"partial"`
	FailedSources []string `json:"failed_sources,omitempty"`
}

// Health reports the failed collections among deps.
func (f Failures) Health(deps ...Collection) Health {
	var h Health
	for _, d := range deps {
		if f[d] != nil {
			h.FailedSources = append(h.FailedSources, string(d))
		}
	}
	sort.Strings(h.FailedSources)
	h.Partial = len(h.FailedSources) > 0
	return h
}

// Names lists every failed collection
func (f Failures) Names() []string {
	names := make([]string, 0, len(f))
	for c, err := range f {
		if err != nil {
			names = append(names, string(c))
		}
	}
	sort.Strings(names)
	return names
}

var (
	revenueDeps  = []Collection{CollectionLeads, CollectionClicks, CollectionLinks, CollectionCommercial, CollectionReceipts}
	sourceDeps   = append([]Collection{CollectionSources}, revenueDeps...)
	agentDeps    = append([]Collection{CollectionAgents, CollectionMessages}, revenueDeps...)
	responseDeps = []Collection{CollectionLeads, CollectionClicks, CollectionLinks, CollectionMessages}
)
