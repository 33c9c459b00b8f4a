package services

import (
	"context"
	"errors"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/auth"
	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/ethauth"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type NonceChallenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Session struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	IsAdmin bool   `json:"is_admin"`
}

// AuthService signs wallets in: the wallet signs a one-shot nonce message
// with personal_sign and receives a JWT for its address.
type AuthService struct {
	nonces NonceStore
	cfg    *config.Config
	log    *zap.Logger
}

func NewAuthService(nonces NonceStore, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{nonces: nonces, cfg: cfg, log: log}
}

func (s *AuthService) IssueNonce(ctx context.Context, address string) (*NonceChallenge, error) {
	address = models.NormalizeAddress(address)
	if !common.IsHexAddress(address) {
		return nil, apperr.Validation("address must be a 0x-prefixed wallet address")
	}

	n, err := s.nonces.Create(ctx, address, s.cfg.NonceTTL)
	if err != nil {
		return nil, err
	}
	return &NonceChallenge{
		Address:   address,
		Nonce:     n.Payload,
		Message:   ethauth.SignInMessage(s.cfg.AuthDomain, address, n.Payload),
		ExpiresAt: n.ExpiresAt,
	}, nil
}

// Verify consumes the pending nonce for address and checks the signature
// over its message. A nonce is spent even when the signature is wrong.
func (s *AuthService) Verify(ctx context.Context, address, signature string) (*Session, error) {
	address = models.NormalizeAddress(address)
	if !common.IsHexAddress(address) {
		return nil, apperr.Validation("address must be a 0x-prefixed wallet address")
	}
	if signature == "" {
		return nil, apperr.Validation("signature is required")
	}

	n, err := s.nonces.Consume(ctx, address)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("no pending sign-in for this address")
	}
	if err != nil {
		return nil, err
	}

	msg := ethauth.SignInMessage(s.cfg.AuthDomain, address, n.Payload)
	if err := ethauth.VerifyPersonalSign(address, msg, signature); err != nil {
		s.log.Info("wallet signature rejected", zap.String("address", address), zap.Error(err))
		return nil, apperr.Unauthorized("invalid signature")
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, address, s.cfg.JWTExpiration)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Address: address, IsAdmin: s.cfg.IsAdmin(address)}, nil
}
