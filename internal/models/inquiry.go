package models

import "time"

// InquiryStatus tracks how far the owner has processed an inquiry.
type InquiryStatus string

const (
	InquiryNew     InquiryStatus = "new"
	InquiryRead    InquiryStatus = "read"
	InquiryReplied InquiryStatus = "replied"
	InquiryClosed  InquiryStatus = "closed"
)

// Inquiry is a message from a user to the owner of a listing
type Inquiry struct {
	ID           int64         `json:"id" db:"id"`
	UserID       int64         `json:"userId" db:"user_id"`
	BatteryID    int64         `json:"batteryId" db:"battery_id"`
	Message      string        `json:"message" db:"message"`
	ContactEmail *string       `json:"contactEmail" db:"contact_email"`
	Status       InquiryStatus `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
}

// CreateInquiryRequest represents an inquiry submission
type CreateInquiryRequest struct {
	BatteryID    int64  `json:"batteryId" validate:"required,gt=0"`
	Message      string `json:"message" validate:"required,max=5000"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email,max=254"`
}
