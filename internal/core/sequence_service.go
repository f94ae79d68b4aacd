package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DocumentFamily describes one human-readable numbering scheme.
// PerDay families embed the date in the prefix and restart at 1 each day.
type DocumentFamily struct {
	Name   string
	Prefix string
	Table  string // table holding the assigned numbers, for seeding scans
	Pad    int
	PerDay bool
}

var (
	InvoiceFamily = DocumentFamily{Name: "invoice", Prefix: "INV-", Table: "invoices", Pad: 3}
	OrderFamily   = DocumentFamily{Name: "order", Prefix: "ORD-", Table: "orders", Pad: 3, PerDay: true}
	GRNFamily     = DocumentFamily{Name: "grn", Prefix: "GRN-", Table: "grns", Pad: 3}
)

// scopedPrefix returns the full prefix for a family on a given date,
// e.g. "INV-" or "ORD-20260828-".
func (f DocumentFamily) scopedPrefix(date time.Time) string {
	if f.PerDay {
		return fmt.Sprintf("%s%s-", f.Prefix, date.Format("20060102"))
	}
	return f.Prefix
}

// FormatNumber renders a sequence value under a family prefix, zero-padded.
func FormatNumber(prefix string, pad int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, pad, n)
}

// ParseNumberSuffix extracts the numeric suffix of an assigned number, or
// false when the number does not belong to the prefix.
func ParseNumberSuffix(prefix, number string) (int64, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SequenceService assigns the next document number for a family.
type SequenceService interface {
	// NextNumberTx assigns the next number within the caller's transaction.
	// Assignment increments a per-scope counter row atomically; the counter
	// is seeded from a scan of already-assigned numbers so it can never fall
	// behind rows written before the counter existed.
	NextNumberTx(ctx context.Context, tx pgx.Tx, family DocumentFamily, date time.Time) (string, error)
}

type sequenceService struct{}

func NewSequenceService() SequenceService {
	return &sequenceService{}
}

func (s *sequenceService) NextNumberTx(ctx context.Context, tx pgx.Tx, family DocumentFamily, date time.Time) (string, error) {
	prefix := family.scopedPrefix(date)

	maxAssigned, err := scanMaxSuffix(ctx, tx, family.Table, prefix)
	if err != nil {
		return "", err
	}

	// Counter row per (family, scope). GREATEST keeps the counter ahead of
	// both its own last value and whatever the scan found.
	var next int64
	err = tx.QueryRow(ctx, `
		INSERT INTO document_sequences (family, scope_key, last_number)
		VALUES ($1, $2, $3 + 1)
		ON CONFLICT (family, scope_key)
		DO UPDATE SET last_number = GREATEST(document_sequences.last_number, $3) + 1
		RETURNING last_number
	`, family.Name, prefix, maxAssigned).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("failed to advance %s sequence: %w", family.Name, err)
	}

	return FormatNumber(prefix, family.Pad, next), nil
}

// scanMaxSuffix scans assigned numbers under a prefix and returns the
// largest numeric suffix, 0 when none exist.
func scanMaxSuffix(ctx context.Context, tx pgx.Tx, table, prefix string) (int64, error) {
	rows, err := tx.Query(ctx,
		fmt.Sprintf("SELECT number FROM %s WHERE number LIKE $1 || '%%'", table), prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s numbers: %w", table, err)
	}
	defer rows.Close()

	var max int64
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return 0, fmt.Errorf("failed to scan number row: %w", err)
		}
		if n, ok := ParseNumberSuffix(prefix, number); ok && n > max {
			max = n
		}
	}
	return max, rows.Err()
}

// defaultNumberAttempts bounds the retry loop around number assignment.
const defaultNumberAttempts = 3

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// failure (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// withNumberRetry runs fn up to attempts times, retrying with a small random
// backoff on unique-constraint failures. Any other error aborts immediately.
// Exhausting the budget surfaces ErrNumberCollision.
func withNumberRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = defaultNumberAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !isUniqueViolation(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(rand.Intn(25)+5) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrNumberCollision, err)
}
