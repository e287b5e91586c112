package domain

import (
	"time"

	"github.com/google/uuid"
)

const PlanAllAccess = "allAccess"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription rows for paid plans are never deleted; cancellation flips
// IsActive and Status only.
type Subscription struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	AccountID    *AccountID         `gorm:"type:uuid;index" db:"account_id" json:"accountId,omitempty"`
	Email        string             `gorm:"type:citext;index" db:"email" json:"email"`
	PlanType     string             `gorm:"type:text;not null" db:"plan_type" json:"planType"`
	BillingCycle string             `gorm:"type:text" db:"billing_cycle" json:"billingCycle"`
	Status       SubscriptionStatus `gorm:"type:text;not null" db:"status" json:"status"`
	IsActive     bool               `gorm:"not null;default:false" db:"is_active" json:"isActive"`
	StartDate    time.Time          `gorm:"not null" db:"start_date" json:"startDate"`
	EndDate      time.Time          `gorm:"not null" db:"end_date" json:"endDate"`
	RenewalDate  *time.Time         `db:"renewal_date" json:"renewalDate,omitempty"`
	CreatedAt    time.Time          `gorm:"not null" db:"created_at" json:"createdAt"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.IsActive && s.EndDate.After(now)
}

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// ProjectPurchase is a one-off purchase of a single project. Only completed
// rows grant access.
type ProjectPurchase struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	AccountID *AccountID     `gorm:"type:uuid;index" db:"account_id" json:"accountId,omitempty"`
	Email     string         `gorm:"type:citext;index" db:"email" json:"email"`
	ProjectID uuid.UUID      `gorm:"type:uuid;index" db:"project_id" json:"projectId"`
	Status    PurchaseStatus `gorm:"type:text;not null" db:"status" json:"status"`
	CreatedAt time.Time      `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (ProjectPurchase) TableName() string { return "project_purchases" }
