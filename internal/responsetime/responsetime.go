package responsetime

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/attribution"
	"github.com/naperu/leadlens/internal/domain"
)

// Bucket thresholds in seconds, both inclusive
const (
	FastThreshold   int64 = 300
	MediumThreshold int64 = 1800
)

type Status string

const (
	StatusResponded       Status = "responded"
	StatusAwaiting        Status = "awaiting_response"
	StatusNoClientMessage Status = "no_client_message"
	StatusInvalid         Status = "invalid"
)

type Bucket string

const (
	BucketFast       Bucket = "fast"
	BucketMedium     Bucket = "medium"
	BucketSlow       Bucket = "slow"
	BucketNoResponse Bucket = "no_response"
	BucketNone       Bucket = ""
)

// Result is the outcome of measuring one attribution event
type Result struct {
	Event           attribution.Event `json:"event"`
	Status          Status            `json:"status"`
	InboundAt       *time.Time        `json:"inbound_at,omitempty"`
	OutboundAt      *time.Time        `json:"outbound_at,omitempty"`
	ResponseSeconds *int64            `json:"response_seconds,omitempty"`
	ResponderID     *uuid.UUID        `json:"responder_id,omitempty"`
}

// Bucket classifies a responded result by speed. Awaiting results are
// "no response"; results with no client message or an invalid duration
// belong to no bucket.
func (r Result) Bucket() Bucket {
	switch r.Status {
	case StatusResponded:
		switch s := *r.ResponseSeconds; {
		case s <= FastThreshold:
			return BucketFast
		case s <= MediumThreshold:
			return BucketMedium
		default:
			return BucketSlow
		}
	case StatusAwaiting:
		return BucketNoResponse
	default:
		return BucketNone
	}
}

// MessageIndex groups messages by lead in chronological order
type MessageIndex map[uuid.UUID][]*domain.Message

func NewMessageIndex(messages []*domain.Message) MessageIndex {
	idx := make(MessageIndex)
	seen := make(map[uuid.UUID]struct{}, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		idx[m.LeadID] = append(idx[m.LeadID], m)
	}
	for _, ms := range idx {
		sort.SliceStable(ms, func(i, j int) bool {
			return ms[i].Timestamp.Before(ms[j].Timestamp)
		})
	}
	return idx
}

// Compute measures how long the business took to answer the first client
// message at or after the event's lower bound. messages must belong to the
// event's lead and be sorted by timestamp.
func Compute(ev attribution.Event, messages []*domain.Message) Result {
	res := Result{Event: ev, Status: StatusNoClientMessage}

	in := -1
	for i, m := range messages {
		if m.FromClient && !m.Timestamp.Before(ev.LowerBound) {
			in = i
			break
		}
	}
	if in < 0 {
		return res
	}
	inbound := messages[in].Timestamp
	res.InboundAt = &inbound
	res.Status = StatusAwaiting

	// An outbound sharing the inbound's timestamp may sort ahead of it.
	for _, m := range messages {
		if m.FromClient || m.Timestamp.Before(inbound) {
			continue
		}
		outbound := m.Timestamp
		secs := int64(math.Round(outbound.Sub(inbound).Seconds()))
		res.OutboundAt = &outbound
		res.ResponderID = m.SenderID
		if secs < 0 {
			res.Status = StatusInvalid
			return res
		}
		res.ResponseSeconds = &secs
		res.Status = StatusResponded
		return res
	}
	return res
}

// Distribution summarizes a set of results
type Distribution struct {
	Fast            int     `json:"fast"`
	Medium          int     `json:"medium"`
	Slow            int     `json:"slow"`
	NoResponse      int     `json:"no_response"`
	NoClientMessage int     `json:"no_client_message"`
	Invalid         int     `json:"invalid"`
	Responded       int     `json:"responded"`
	AverageSeconds  float64 `json:"average_seconds"`
}

func Summarize(results []Result) Distribution {
	var d Distribution
	var total int64
	for _, r := range results {
		switch r.Status {
		case StatusNoClientMessage:
			d.NoClientMessage++
			continue
		case StatusInvalid:
			d.Invalid++
			continue
		}
		switch r.Bucket() {
		case BucketFast:
			d.Fast++
		case BucketMedium:
			d.Medium++
		case BucketSlow:
			d.Slow++
		case BucketNoResponse:
			d.NoResponse++
		}
		if r.Status == StatusResponded {
			d.Responded++
			total += *r.ResponseSeconds
		}
	}
	if d.Responded > 0 {
		d.AverageSeconds = math.Round(float64(total)/float64(d.Responded)*100) / 100
	}
	return d
}
