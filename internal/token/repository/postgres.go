package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tokenforge/engine/internal/token/domain"
)

// PostgresRepository persists tokens in the tokens table. The info map is
// stored as a JSONB column.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a token repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the token. The token must have Serial and Type set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	info, err := marshalInfo(t.Info)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tokens (serial, type, owner_id, realm, otpkey, description, active, locked,
		                    pin_hash, counter, info, rollout, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.Serial, t.Type, t.OwnerID, t.Realm, t.OTPKey, t.Description, t.Active, t.Locked,
		t.PINHash, t.Counter, info, string(t.Rollout), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetBySerial returns the token for serial, or nil if not found.
func (r *PostgresRepository) GetBySerial(ctx context.Context, serial string) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT serial, type, owner_id, realm, otpkey, description, active, locked,
		       pin_hash, counter, info, rollout, created_at, updated_at
		FROM tokens WHERE serial = $1`, serial)
	t, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListByOwner returns all tokens owned by ownerID in realm.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID, realm string) ([]*domain.Token, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT serial, type, owner_id, realm, otpkey, description, active, locked,
		       pin_hash, counter, info, rollout, created_at, updated_at
		FROM tokens WHERE owner_id = $1 AND realm = $2 ORDER BY created_at`, ownerID, realm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update persists all mutable fields of the token.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Token) error {
	info, err := marshalInfo(t.Info)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE tokens
		SET owner_id = $2, realm = $3, otpkey = $4, description = $5, active = $6, locked = $7,
		    pin_hash = $8, counter = $9, info = $10, rollout = $11, updated_at = $12
		WHERE serial = $1`,
		t.Serial, t.OwnerID, t.Realm, t.OTPKey, t.Description, t.Active, t.Locked,
		t.PINHash, t.Counter, info, string(t.Rollout), time.Now().UTC(),
	)
	return err
}

// Delete removes the token by serial.
func (r *PostgresRepository) Delete(ctx context.Context, serial string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE serial = $1`, serial)
	return err
}

func marshalInfo(info map[string]string) ([]byte, error) {
	if info == nil {
		info = map[string]string{}
	}
	return json.Marshal(info)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*domain.Token, error) {
	var (
		t       domain.Token
		info    []byte
		rollout string
	)
	if err := row.Scan(&t.Serial, &t.Type, &t.OwnerID, &t.Realm, &t.OTPKey, &t.Description,
		&t.Active, &t.Locked, &t.PINHash, &t.Counter, &info, &rollout,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Rollout = domain.RolloutState(rollout)
	if len(info) > 0 {
		if err := json.Unmarshal(info, &t.Info); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
