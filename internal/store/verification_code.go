package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dukerupert/smartgrocery/internal/model"
)

const codeTTL = 15 * time.Minute

type CodeStore struct {
	db *sql.DB
}

func NewCodeStore(db *sql.DB) *CodeStore {
	return &CodeStore{db: db}
}

func scanCode(scanner interface{ Scan(...any) error }) (*model.VerificationCode, error) {
	var vc model.VerificationCode
	var usedAt sql.NullTime

	err := scanner.Scan(
		&vc.ID, &vc.Code, &vc.Email, &vc.Purpose,
		&vc.ExpiresAt, &usedAt, &vc.Attempts, &vc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		vc.UsedAt = &usedAt.Time
	}
	return &vc, nil
}

const codeCols = `id, code, email, purpose, expires_at, used_at, attempts, created_at`

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a new code with a 15-minute expiry. Pending codes for the
// same email and purpose are invalidated first.
func (s *CodeStore) Create(ctx context.Context, email, purpose string) (*model.VerificationCode, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE verification_codes SET used_at = ? WHERE email = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?`,
		now, email, purpose, now,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_codes (code, email, purpose, expires_at) VALUES (?, ?, ?, ?)`,
		code, email, purpose, now.Add(codeTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("insert verification code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+codeCols+` FROM verification_codes WHERE id = ?`, id)
	return scanCode(row)
}

// GetPending returns the most recent unexpired, unused code for email and
// purpose, or nil.
func (s *CodeStore) GetPending(ctx context.Context, email, purpose string) (*model.VerificationCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+codeCols+` FROM verification_codes
		WHERE email = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?
		ORDER BY id DESC LIMIT 1`,
		email, purpose, time.Now().UTC(),
	)
	vc, err := scanCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending code: %w", err)
	}
	return vc, nil
}

// IncrementAttempts increments the attempt count and returns the new value.
func (s *CodeStore) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`UPDATE verification_codes SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

func (s *CodeStore) MarkUsed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE verification_codes SET used_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	return nil
}

func (s *CodeStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
