package document

import (
	"context"
	"fmt"
)

// LogSearch appends one entry to the search query log. Entries are never
// updated after insert.
func (s *Store) LogSearch(ctx context.Context, q *SearchQuery) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO search_queries (ts, actor, project_id, query_text, k,
			result_count, latency_ms, answer, topic)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.Timestamp, nullable(q.Actor), q.ProjectID, q.QueryText, q.K,
		q.ResultCount, q.LatencyMS, nullable(q.Answer), nullable(q.Topic),
	)
	if err != nil {
		return fmt.Errorf("log search query: %w", err)
	}
	return nil
}

// ListSearchQueries returns a project's most recent log entries.
func (s *Store) ListSearchQueries(ctx context.Context, projectID string, limit int) ([]SearchQuery, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, ts, COALESCE(actor, ''), project_id, query_text, k,
			result_count, COALESCE(latency_ms, 0), COALESCE(answer, ''), COALESCE(topic, '')
		FROM search_queries
		WHERE project_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list search queries: %w", err)
	}
	defer rows.Close()

	var queries []SearchQuery
	for rows.Next() {
		var q SearchQuery
		err := rows.Scan(&q.ID, &q.Timestamp, &q.Actor, &q.ProjectID, &q.QueryText,
			&q.K, &q.ResultCount, &q.LatencyMS, &q.Answer, &q.Topic)
		if err != nil {
			return nil, fmt.Errorf("scan search query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list search queries: %w", err)
	}
	return queries, nil
}
