package service

import (
	"context"

	"github.com/google/uuid"

	"atelier/internal/domain"
)

// Identity is who is asking for content: an authenticated account, or a bare
// email for unauthenticated checkout flows.
type Identity struct {
	AccountID *uuid.UUID
	Email     string
}

// AccessService is the entitlement resolution engine. It depends on the
// payment store only and knows nothing about login state.
type AccessService interface {
	// ResolveProject loads a project by id or slug.
	ResolveProject(ctx context.Context, idOrSlug string) (*domain.Project, error)
	// HasAccess decides whether the identity may download the project.
	HasAccess(ctx context.Context, who Identity, project *domain.Project) (bool, error)
	// RecordDownload accounts a served download: originally-free items get
	// their counter bumped and may flip to paid-after-limit.
	RecordDownload(ctx context.Context, project *domain.Project) error
}
