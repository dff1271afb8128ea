package revenue

import (
	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
)

// Scope limits which leads (and therefore which entries) a report sees
type Scope struct {
	Mode    string    `json:"mode"`
	AgentID uuid.UUID `json:"agent_id,omitempty"`
}

func SharedScope() Scope {
	return Scope{Mode: domain.VisibilityShared}
}

func PersonalScope(agentID uuid.UUID) Scope {
	return Scope{Mode: domain.VisibilityPersonal, AgentID: agentID}
}

func (s Scope) IsPersonal() bool {
	return s.Mode == domain.VisibilityPersonal
}

// Allows reports whether the lead is visible. Personal scope only sees
// leads assigned to its agent.
func (s Scope) Allows(lead *domain.Lead) bool {
	if !s.IsPersonal() {
		return true
	}
	return lead.IsAssignedTo(s.AgentID)
}

// AllowsAgent reports whether a row for the agent may be shown
func (s Scope) AllowsAgent(agentID uuid.UUID) bool {
	return !s.IsPersonal() || s.AgentID == agentID
}
