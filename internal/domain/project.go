package domain

import (
	"time"

	"github.com/google/uuid"
)

const DefaultDownloadLimit = 5

// Project carries only the fields the entitlement engine cares about plus
// what the download handler needs to serve the archive.
type Project struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Slug     string    `gorm:"type:text;uniqueIndex:ux_projects_slug" db:"slug" json:"slug"`
	Title    string    `gorm:"type:text;not null" db:"title" json:"title"`
	Price    int64     `gorm:"not null;default:0" db:"price" json:"price"`
	Currency string    `gorm:"type:text;default:'USD'" db:"currency" json:"currency"`
	IsPaid   bool      `gorm:"not null;default:false" db:"is_paid" json:"isPaid"`

	DownloadLimit int `gorm:"not null;default:5" db:"download_limit" json:"downloadLimit"`
	DownloadCount int `gorm:"not null;default:0" db:"download_count" json:"downloadCount"`
	// IsPaidAfterLimit flips once the free quota is exhausted. One-way.
	IsPaidAfterLimit bool `gorm:"not null;default:false" db:"is_paid_after_limit" json:"isPaidAfterLimit"`

	ArchivePath string    `gorm:"type:text" db:"archive_path" json:"-"`
	CreatedAt   time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// EffectivelyPaid treats the price as authoritative over the stored IsPaid
// flag, tolerating drift between the two.
func (p *Project) EffectivelyPaid() bool { return p.Price > 0 }

// FreeQuotaItem reports whether downloads of this project feed the free-quota
// counter: either the project is nominally free, or it already ran past its
// limit and the flag flipped.
func (p *Project) FreeQuotaItem() bool { return !p.EffectivelyPaid() || p.IsPaidAfterLimit }
