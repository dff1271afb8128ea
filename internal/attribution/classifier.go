package attribution

import (
	"strings"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
)

// Fallback display names
const (
	MetaDisplayName    = "Meta Ads"
	UnknownSourceName  = "Unknown source"
	OrganicDisplayName = "Organic"
)

// LinkSourceSet holds the source ids that trackable links point at
type LinkSourceSet map[uuid.UUID]struct{}

func NewLinkSourceSet(links []*domain.TrackableLink) LinkSourceSet {
	set := make(LinkSourceSet, len(links))
	for _, l := range links {
		if l == nil {
			continue
		}
		set[l.SourceID] = struct{}{}
	}
	return set
}

func (s LinkSourceSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Classify assigns a lead to exactly one channel. The first matching rule
// wins: paid ad, trackable link source, plain source, organic.
func Classify(lead *domain.Lead, links LinkSourceSet) domain.Channel {
	switch {
	case lead.HasAdSource():
		return domain.ChannelMeta
	case lead.SourceID != nil && links.Has(*lead.SourceID):
		return domain.ChannelLink
	case lead.SourceID != nil:
		return domain.ChannelSource
	default:
		return domain.ChannelOrganic
	}
}

// Origin describes where a lead came from, for display
type Origin struct {
	Channel  domain.Channel    `json:"channel"`
	Name     string            `json:"name"`
	Code     *string           `json:"code,omitempty"`
	SourceID *uuid.UUID        `json:"source_id,omitempty"`
	Color    string            `json:"color,omitempty"`
	Tag      *domain.SourceTag `json:"tag,omitempty"`
}

// SourceIndex maps sources by id
func SourceIndex(sources []*domain.LeadSource) map[uuid.UUID]*domain.LeadSource {
	idx := make(map[uuid.UUID]*domain.LeadSource, len(sources))
	for _, s := range sources {
		if s != nil {
			idx[s.ID] = s
		}
	}
	return idx
}

// Describe resolves the display name of a lead's origin for the given channel.
func Describe(lead *domain.Lead, channel domain.Channel, sources map[uuid.UUID]*domain.LeadSource) Origin {
	o := Origin{Channel: channel}

	switch channel {
	case domain.ChannelMeta:
		o.Name = firstNonEmpty(lead.AdName, lead.CampaignName, lead.AdSourceID)
		if o.Name == "" {
			o.Name = MetaDisplayName
		}
	case domain.ChannelLink, domain.ChannelSource:
		o.SourceID = lead.SourceID
		o.Name = UnknownSourceName
		if src, ok := sources[*lead.SourceID]; ok {
			o.Code = src.Code
			o.Color = src.Color
			o.Tag = src.Tag
			if name := firstNonEmpty(&src.Name, src.Code); name != "" {
				o.Name = name
			}
		}
	default:
		o.Name = OrganicDisplayName
	}
	return o
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v
		}
	}
	return ""
}
