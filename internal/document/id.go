package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// nextID allocates the next human-readable document id for the given year,
// of the form Doc-YYYY-NNNN. The sequence restarts each year. Past 9999 the
// number simply grows wider; the prefix ordering stays correct because the
// scan parses rather than compares lexically.
func (s *Store) nextID(ctx context.Context, now time.Time) (string, error) {
	prefix := fmt.Sprintf("Doc-%d-", now.Year())

	var last string
	err := s.q.QueryRow(ctx,
		`SELECT id FROM documents WHERE id LIKE $1 ORDER BY length(id) DESC, id DESC LIMIT 1`,
		prefix+"%",
	).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return prefix + "0001", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last document id: %w", err)
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
	if err != nil {
		return "", fmt.Errorf("parse document id %q: %w", last, err)
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}
