package history

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/tj/go-naturaldate"
)

// QueryFilter represents the common query structure for every history query
type QueryFilter struct {
	// Time filters
	StartTime  *time.Time // Start of time range (inclusive)
	EndTime    *time.Time // End of time range (inclusive)
	Days       int        // Convenience: last N days
	DatePreset string     // Convenience: "today", "yesterday", "week", "month", "all"

	// Content filters
	Kind    Kind   // Filter by command kind
	Backend string // Filter by backend name
	Path    string // Substring match on the path

	// Output control
	Limit  int // Maximum results, 0 = no limit
	Offset int // For pagination
}

// ApplyTimeFilter converts the time options to Unix timestamps. A preset wins over
// explicit times, which win over Days. startUnix 0 means no lower bound.
func (q *QueryFilter) ApplyTimeFilter(now time.Time) (startUnix, endUnix int64) {
	endUnix = now.Unix()

	if q.DatePreset != "" {
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, endUnix
		}
		if start.IsZero() {
			return 0, end.Unix()
		}
		return start.Unix(), end.Unix()
	}

	if q.StartTime != nil && q.EndTime != nil {
		return q.StartTime.Unix(), q.EndTime.Unix()
	}
	if q.StartTime != nil {
		return q.StartTime.Unix(), endUnix
	}
	if q.EndTime != nil {
		return 0, q.EndTime.Unix()
	}

	if q.Days > 0 {
		return now.AddDate(0, 0, -q.Days).Unix(), endUnix
	}

	return 0, endUnix
}

func (q *QueryFilter) hasTimeFilter() bool {
	return q.StartTime != nil || q.EndTime != nil || q.Days > 0 || q.DatePreset != ""
}

// newSelect starts a SELECT over play_events with the filter's conditions applied
func (q *QueryFilter) newSelect(now time.Time, cols ...string) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(cols...).From("play_events")
	if conds := q.conditions(sb, now); len(conds) > 0 {
		sb.Where(conds...)
	}
	return sb
}

// conditions returns the WHERE expressions for the filter, with their arguments bound
// to sb
func (q *QueryFilter) conditions(sb *sqlbuilder.SelectBuilder, now time.Time) []string {
	var conds []string

	if q.hasTimeFilter() {
		startUnix, endUnix := q.ApplyTimeFilter(now)
		if startUnix > 0 {
			conds = append(conds, sb.GreaterEqualThan("timestamp", startUnix))
		}
		conds = append(conds, sb.LessEqualThan("timestamp", endUnix))
	}

	if q.Kind != "" {
		conds = append(conds, sb.Equal("kind", string(q.Kind)))
	}

	if q.Backend != "" {
		conds = append(conds, sb.Equal("backend", q.Backend))
	}

	if q.Path != "" {
		conds = append(conds, "path LIKE "+sb.Var("%"+escapeLike(q.Path)+"%")+` ESCAPE '\'`)
	}

	slog.Debug("built history conditions", "count", len(conds))
	return conds
}

// paginate applies Limit and Offset. An offset without a limit reads to the end.
func (q *QueryFilter) paginate(sb *sqlbuilder.SelectBuilder) {
	switch {
	case q.Limit > 0:
		sb.Limit(q.Limit)
	case q.Offset > 0:
		sb.Limit(math.MaxInt32)
	default:
		return
	}
	if q.Offset > 0 {
		sb.Offset(q.Offset)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ParseDatePreset converts date preset strings to time ranges
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case "today":
		start = beginningOfDay(now)
		end = now
	case "yesterday":
		start = beginningOfDay(now.AddDate(0, 0, -1))
		end = beginningOfDay(now)
	case "week", "this-week":
		start = beginningOfWeek(now)
		end = now
	case "last-week":
		start = beginningOfWeek(now).AddDate(0, 0, -7)
		end = beginningOfWeek(now)
	case "month", "this-month":
		start = beginningOfMonth(now)
		end = now
	case "last-month":
		start = beginningOfMonth(now).AddDate(0, -1, 0)
		end = beginningOfMonth(now)
	case "all", "all-time":
		start = time.Time{}
		end = now
	default:
		err = fmt.Errorf("unknown preset: %s", preset)
		return
	}

	slog.Debug("parsed date preset", "preset", preset, "start", start, "end", end)
	return
}

// ParseNaturalDate parses expressions like "2 hours ago" or "last monday" relative to
// now
func ParseNaturalDate(input string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(input, now)
	if err != nil {
		slog.Warn("failed to parse natural language date", "input", input, "error", err)
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", input, err)
	}
	if result.Equal(now) && !isNowExpression(input) {
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': no date found", input)
	}
	return result, nil
}

func isNowExpression(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "now", "today", "right now":
		return true
	}
	return false
}

// ApplySince sets the filter's lower bound from a --since value. Presets are tried
// first, then natural language dates.
func (q *QueryFilter) ApplySince(since string, now time.Time) error {
	if since == "" {
		return nil
	}
	if start, end, err := ParseDatePreset(since, now); err == nil {
		q.StartTime = &start
		q.EndTime = &end
		if start.IsZero() {
			q.StartTime = nil
		}
		return nil
	}
	start, err := ParseNaturalDate(since, now)
	if err != nil {
		return err
	}
	q.StartTime = &start
	return nil
}

// beginningOfDay returns time at start of day (00:00:00)
func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns time at start of week (Monday 00:00:00)
func beginningOfWeek(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -int(weekday-1))
	return beginningOfDay(monday)
}

// beginningOfMonth returns time at start of month (1st day 00:00:00)
func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
