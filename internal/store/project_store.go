package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"atelier/internal/domain"
)

type ProjectStore struct{ db *gorm.DB }

func (s *Store) Projects() *ProjectStore { return &ProjectStore{db: s.DB} }

func (p *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var proj domain.Project
	if err := p.db.WithContext(ctx).First(&proj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &proj, nil
}

func (p *ProjectStore) GetBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	var proj domain.Project
	if err := p.db.WithContext(ctx).First(&proj, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &proj, nil
}

// IncrementDownload bumps the counter with an atomic expression (no
// read-modify-write race on the count) and flips is_paid_after_limit in the
// same statement once the limit is reached. The flip is one-way: the WHERE
// never un-sets it and a double flip is idempotent.
func (p *ProjectStore) IncrementDownload(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return p.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"download_count":     gorm.Expr("download_count + ?", 1),
			"is_paid_after_limit": gorm.Expr("is_paid_after_limit OR download_count + 1 >= download_limit"),
			"updated_at":         now,
		}).Error
}
