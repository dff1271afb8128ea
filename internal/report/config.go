package report

import "sort"

// PanelID names a dashboard section
type PanelID string

const (
	PanelSummary       PanelID = "summary"
	PanelToday         PanelID = "today"
	PanelSources       PanelID = "sources"
	PanelAgents        PanelID = "agents"
	PanelDaily         PanelID = "daily"
	PanelResponseTimes PanelID = "response_times"
)

// Panel is the layout entry for one section
type Panel struct {
	ID      PanelID `json:"id"`
	Visible bool    `json:"visible"`
	Order   int     `json:"order"`
}

// Config describes which panels a dashboard shows and in what order. It is
// passed in explicitly with every request.
type Config struct {
	Panels []Panel `json:"panels"`
}

func DefaultConfig() Config {
	return Config{Panels: []Panel{
		{ID: PanelSummary, Visible: true, Order: 1},
		{ID: PanelToday, Visible: true, Order: 2},
		{ID: PanelSources, Visible: true, Order: 3},
		{ID: PanelAgents, Visible: true, Order: 4},
		{ID: PanelDaily, Visible: true, Order: 5},
		{ID: PanelResponseTimes, Visible: true, Order: 6},
	}}
}

// Enabled lists visible panels by order. Unknown ids are dropped.
func (c Config) Enabled() []PanelID {
	panels := make([]Panel, 0, len(c.Panels))
	seen := make(map[PanelID]bool, len(c.Panels))
	for _, p := range c.Panels {
		if !p.Visible || seen[p.ID] || !known(p.ID) {
			continue
		}
		seen[p.ID] = true
		panels = append(panels, p)
	}
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].Order < panels[j].Order })

	ids := make([]PanelID, len(panels))
	for i, p := range panels {
		ids[i] = p.ID
	}
	return ids
}

func (c Config) IsEnabled(id PanelID) bool {
	for _, p := range c.Enabled() {
		if p == id {
			return true
		}
	}
	return false
}

func known(id PanelID) bool {
	switch id {
	case PanelSummary, PanelToday, PanelSources, PanelAgents, PanelDaily, PanelResponseTimes:
		return true
	}
	return false
}
