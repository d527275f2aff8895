package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/models"
	"github.com/sooksun/tablebooking/internal/pricing"
	"github.com/sooksun/tablebooking/internal/utils"
)

var (
	ErrMissingName   = errors.New("name is required")
	ErrInvalidPhone  = errors.New("invalid phone number")
	ErrNothingBought = errors.New("registration needs a donation or a shirt order")
	ErrInvalidAmount = errors.New("invalid payment amount")
)

type DBLayer interface {
	CreateRegistration(ctx context.Context, r *models.Registration) error
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
}

// Service handles donation/shirt-order registrations with no table attached.
// Records are append-only; slips are reviewed by an admin out of band.
type Service struct {
	DB      DBLayer
	Pricing *pricing.Calculator
	Logger  *logger.Logger

	now func() time.Time
}

func NewService(db DBLayer, pr *pricing.Calculator, log *logger.Logger) *Service {
	return &Service{DB: db, Pricing: pr, Logger: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req models.CreateRegistrationRequest) (*models.Registration, error) {
	name := strings.TrimSpace(req.UserName)
	if name == "" {
		return nil, ErrMissingName
	}
	phone := utils.NormalizePhone(req.Phone)
	if len(phone) < utils.MinPhoneDigits {
		return nil, ErrInvalidPhone
	}

	donation := req.Donation
	if donation < 0 {
		donation = 0
	}
	if donation == 0 && len(req.ShirtOrders) == 0 {
		return nil, ErrNothingBought
	}

	expected := s.Pricing.RegistrationTotal(donation, req.ShirtOrders, req.ShirtDelivery)
	if req.TotalAmount < expected {
		return nil, fmt.Errorf("amount %d is below the computed total %d: %w", req.TotalAmount, expected, ErrInvalidAmount)
	}

	reg := models.Registration{
		ID:                   uuid.NewString(),
		UserName:             name,
		Phone:                phone,
		Donation:             donation,
		ShirtOrders:          req.ShirtOrders,
		ShirtDelivery:        req.ShirtDelivery,
		ShirtDeliveryAddress: strings.TrimSpace(req.ShirtDeliveryAddress),
		EDonationWant:        req.EDonationWant,
		TotalAmount:          req.TotalAmount,
		SlipURL:              req.SlipURL,
		CreatedAt:            s.now(),
	}
	if req.EDonationWant {
		reg.EDonationName = strings.TrimSpace(req.EDonationName)
		reg.EDonationAddress = strings.TrimSpace(req.EDonationAddress)
		reg.EDonationID = strings.TrimSpace(req.EDonationID)
	}

	if err := s.DB.CreateRegistration(ctx, &reg); err != nil {
		return nil, err
	}
	s.Logger.Info("REGISTRATION", fmt.Sprintf("created %s for %s (amount %d)", reg.ID, reg.UserName, reg.TotalAmount))
	return &reg, nil
}

func (s *Service) List(ctx context.Context) ([]models.Registration, error) {
	return s.DB.ListRegistrations(ctx)
}
