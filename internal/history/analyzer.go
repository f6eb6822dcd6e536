package history

import (
	"fmt"
	"time"
)

// GetRecentEvents returns the events matching filter, newest first
func (s *Store) GetRecentEvents(filter QueryFilter) ([]Event, error) {
	if s.db == nil {
		return nil, ErrNilDatabase
	}

	sb := filter.newSelect(time.Now(),
		"id", "timestamp", "kind", "path", "backend", "format", "frames", "duration_ms", "completed")
	sb.OrderBy("timestamp DESC", "id DESC")
	filter.paginate(sb)
	query, args := sb.Build()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query play events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var ts, durationMS int64
		var kind string
		var completed int
		if err := rows.Scan(&event.ID, &ts, &kind, &event.Path, &event.Backend, &event.Format,
			&event.Frames, &durationMS, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan play event row: %w", err)
		}
		event.Timestamp = time.Unix(ts, 0)
		event.Kind = Kind(kind)
		event.Duration = time.Duration(durationMS) * time.Millisecond
		event.Completed = completed == 1
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate play events: %w", err)
	}
	return events, nil
}

// GetTopSounds returns per-path play counts, most played first
func (s *Store) GetTopSounds(filter QueryFilter) ([]SoundUsage, error) {
	if s.db == nil {
		return nil, ErrNilDatabase
	}

	sb := filter.newSelect(time.Now(), "path", "COUNT(*) AS play_count", "SUM(duration_ms)", "MAX(timestamp) AS last_played")
	sb.GroupBy("path")
	sb.OrderBy("play_count DESC", "last_played DESC")
	filter.paginate(sb)
	query, args := sb.Build()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top sounds: %w", err)
	}
	defer rows.Close()

	var results []SoundUsage
	for rows.Next() {
		var usage SoundUsage
		var durationMS, last int64
		if err := rows.Scan(&usage.Path, &usage.PlayCount, &durationMS, &last); err != nil {
			return nil, fmt.Errorf("failed to scan top sound row: %w", err)
		}
		usage.TotalDuration = time.Duration(durationMS) * time.Millisecond
		usage.LastPlayed = time.Unix(last, 0)
		results = append(results, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top sounds: %w", err)
	}
	return results, nil
}

// GetSummary aggregates every event matching filter. Limit and Offset are ignored.
func (s *Store) GetSummary(filter QueryFilter) (*Summary, error) {
	if s.db == nil {
		return nil, ErrNilDatabase
	}

	now := time.Now()
	summary := &Summary{Backends: make(map[string]int)}

	totals := filter.newSelect(now,
		"COUNT(*)", "COUNT(DISTINCT path)", "COALESCE(SUM(completed), 0)", "COALESCE(SUM(duration_ms), 0)")
	query, args := totals.Build()

	var durationMS int64
	err := s.db.QueryRow(query, args...).
		Scan(&summary.TotalEvents, &summary.UniquePaths, &summary.Completed, &durationMS)
	if err != nil {
		return nil, fmt.Errorf("failed to query history summary: %w", err)
	}
	summary.TotalDuration = time.Duration(durationMS) * time.Millisecond

	byBackend := filter.newSelect(now, "backend", "COUNT(*)")
	byBackend.GroupBy("backend")
	query, args = byBackend.Build()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backend counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var backend string
		var count int
		if err := rows.Scan(&backend, &count); err != nil {
			return nil, fmt.Errorf("failed to scan backend count: %w", err)
		}
		summary.Backends[backend] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backend counts: %w", err)
	}
	return summary, nil
}
