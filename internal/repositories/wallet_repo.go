package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/crowdbounty/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthNonceRepo stores sign-in challenges for wallet authentication.
type AuthNonceRepo struct {
	pool *pgxpool.Pool
}

func NewAuthNonceRepo(pool *pgxpool.Pool) *AuthNonceRepo {
	return &AuthNonceRepo{pool: pool}
}

func (r *AuthNonceRepo) Create(ctx context.Context, address string, ttl time.Duration) (*models.AuthNonce, error) {
	n := &models.AuthNonce{
		Payload: generateNonce(16),
		Address: address,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_nonces (payload, address, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3::double precision))
		RETURNING id, created_at, expires_at
	`, n.Payload, address, ttl.Seconds()).Scan(&n.ID, &n.CreatedAt, &n.ExpiresAt)
	if err != nil {
		return nil, storeErr(err, "nonce")
	}
	return n, nil
}

// Consume marks the newest unexpired nonce of address as used and returns it.
// A nonce can be consumed once.
func (r *AuthNonceRepo) Consume(ctx context.Context, address string) (*models.AuthNonce, error) {
	var n models.AuthNonce
	err := r.pool.QueryRow(ctx, `
		UPDATE auth_nonces SET used = true
		WHERE id = (
			SELECT id FROM auth_nonces
			WHERE address = $1 AND used = false AND expires_at > now()
			ORDER BY created_at DESC LIMIT 1
		) AND used = false
		RETURNING id, payload, address, created_at, expires_at, used
	`, address).Scan(&n.ID, &n.Payload, &n.Address, &n.CreatedAt, &n.ExpiresAt, &n.Used)
	if err != nil {
		return nil, storeErr(err, "nonce")
	}
	return &n, nil
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
