package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/naperu/leadlens/internal/domain"
)

// Token names a reporting window relative to "now"
type Token string

const (
	Today      Token = "today"
	Yesterday  Token = "yesterday"
	Last7Days  Token = "7d"
	Last30Days Token = "30d"
	Month      Token = "month"
	Custom     Token = "custom"
)

// DateLayout is the calendar date format accepted for custom ranges
const DateLayout = "2006-01-02"

// ParseToken validates a period token. An empty string means today.
func ParseToken(s string) (Token, error) {
	switch t := Token(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return Today, nil
	case Today, Yesterday, Last7Days, Last30Days, Month, Custom:
		return t, nil
	default:
		return "", domain.NewValidationError(fmt.Sprintf("unknown period %q", s))
	}
}

// Range is a half-open interval [Start, End). A nil End is open-ended.
type Range struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return r.End == nil || t.Before(*r.End)
}

func (r Range) String() string {
	if r.End == nil {
		return r.Start.Format(time.RFC3339) + "/"
	}
	return r.Start.Format(time.RFC3339) + "/" + r.End.Format(time.RFC3339)
}

// Union is the smallest range covering both a and b.
func Union(a, b Range) Range {
	u := Range{Start: a.Start}
	if b.Start.Before(u.Start) {
		u.Start = b.Start
	}
	if a.End == nil || b.End == nil {
		return u
	}
	end := *a.End
	if b.End.After(end) {
		end = *b.End
	}
	u.End = &end
	return u
}

// Days lists the local midnights of every calendar day the range covers,
// in chronological order. Open-ended ranges stop at the day of now.
func (r Range) Days(now time.Time) []time.Time {
	loc := now.Location()
	limit := midnight(now.In(loc)).AddDate(0, 0, 1)
	if r.End != nil {
		limit = *r.End
	}

	var days []time.Time
	for day := midnight(r.Start.In(loc)); day.Before(limit); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// CustomDates carries the calendar dates of a custom range. Only the
// year, month and day of each value are used.
type CustomDates struct {
	Start *time.Time
	End   *time.Time
}

// Resolve turns a token into a concrete range on the calendar of now's
// location.
func Resolve(token Token, now time.Time, custom *CustomDates) (Range, error) {
	today := midnight(now)

	switch token {
	case Today:
		return Range{Start: today}, nil
	case Yesterday:
		return Range{Start: today.AddDate(0, 0, -1), End: &today}, nil
	case Last7Days:
		return Range{Start: today.AddDate(0, 0, -7)}, nil
	case Last30Days:
		return Range{Start: today.AddDate(0, 0, -30)}, nil
	case Month:
		y, m, _ := now.Date()
		return Range{Start: time.Date(y, m, 1, 0, 0, 0, 0, now.Location())}, nil
	case Custom:
		return resolveCustom(now.Location(), custom)
	default:
		return Range{}, domain.NewValidationError(fmt.Sprintf("unknown period %q", token))
	}
}

func resolveCustom(loc *time.Location, custom *CustomDates) (Range, error) {
	if custom == nil || custom.Start == nil {
		return Range{}, domain.NewValidationError("custom period requires a start date")
	}
	r := Range{Start: dateIn(*custom.Start, loc)}
	if custom.End != nil {
		// The end date is inclusive, so the range runs until the next midnight.
		end := dateIn(*custom.End, loc).AddDate(0, 0, 1)
		if !end.After(r.Start) {
			return Range{}, domain.NewValidationError("custom period ends before it starts")
		}
		r.End = &end
	}
	return r, nil
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("invalid date %q", s))
	}
	return t, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
