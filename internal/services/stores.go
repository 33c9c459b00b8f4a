package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/crowdbounty/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Storage the services depend on. The pgx repositories implement these.

type BountyStore interface {
	Create(ctx context.Context, b *models.Bounty) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bounty, error)
	List(ctx context.Context, f repositories.BountyFilter) ([]models.Bounty, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	CompleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type ParticipationStore interface {
	Exists(ctx context.Context, bountyID uuid.UUID, creatorAddress string) (bool, error)
	Record(ctx context.Context, p *models.BountyParticipation, enforceCap bool) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BountyParticipation, error)
	ListByBounty(ctx context.Context, bountyID uuid.UUID) ([]models.BountyParticipation, error)
	BountyIDsByParticipant(ctx context.Context, creatorAddress string) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to, reviewer string, at time.Time) (bool, error)
}

type CampaignImageStore interface {
	FindByCampaign(ctx context.Context, campaignAddress string) (*models.CampaignImage, error)
	Upsert(ctx context.Context, c *models.CampaignImage) error
}

type DepositStore interface {
	Create(ctx context.Context, d *models.BountyDeposit) error
	ListByCampaign(ctx context.Context, campaignAddress string, limit int) ([]models.BountyDeposit, error)
}

type NonceStore interface {
	Create(ctx context.Context, address string, ttl time.Duration) (*models.AuthNonce, error)
	Consume(ctx context.Context, address string) (*models.AuthNonce, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]models.AuditLog, error)
}

// newValidator reports field names as they appear in request JSON.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into a ValidationError.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid request: %v", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return apperr.Validation("%s must not be empty", fe.Field())
		}
		return apperr.Validation("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return apperr.Validation("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return apperr.Validation("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return apperr.Validation("%s is invalid", fe.Field())
	}
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation("%s is not a valid id", field)
	}
	return id, nil
}

func strPtr(s string) *string {
	return &s
}
