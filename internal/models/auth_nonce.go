package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthNonce is a one-shot challenge a wallet signs to obtain a session token.
type AuthNonce struct {
	ID        uuid.UUID `json:"id"`
	Payload   string    `json:"payload"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"-"`
}
