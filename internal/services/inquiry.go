package services

import (
	"context"
	"strings"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/repository"
	"go.uber.org/zap"
)

// InquiryService records buyer inquiries against listings
type InquiryService struct {
	repo      repository.Repository
	validator *Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewInquiryService creates a new inquiry service
func NewInquiryService(repo repository.Repository, validator *Validator, logger *zap.Logger) *InquiryService {
	return &InquiryService{
		repo:      repo,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateInquiry stores a new inquiry from userID about an existing listing
func (s *InquiryService) CreateInquiry(ctx context.Context, userID int64, req *models.CreateInquiryRequest) (*models.Inquiry, error) {
	req.Message = strings.TrimSpace(req.Message)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetBattery(ctx, req.BatteryID); err != nil {
		return nil, translate(err, "Battery not found")
	}

	inquiry := &models.Inquiry{
		UserID:    userID,
		BatteryID: req.BatteryID,
		Message:   req.Message,
		Status:    models.InquiryNew,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if req.ContactEmail != "" {
		email := req.ContactEmail
		inquiry.ContactEmail = &email
	}

	if err := s.repo.CreateInquiry(ctx, inquiry); err != nil {
		return nil, translate(err, "Battery not found")
	}

	s.logger.Info("Inquiry created",
		zap.Int64("inquiry_id", inquiry.ID),
		zap.Int64("battery_id", inquiry.BatteryID))

	return inquiry, nil
}

// ListInquiries returns the most recent inquiries
func (s *InquiryService) ListInquiries(ctx context.Context, limit int) ([]*models.Inquiry, error) {
	inquiries, err := s.repo.ListInquiries(ctx, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return inquiries, nil
}
