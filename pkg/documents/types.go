package documents

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/docvault/pkg/rbac"
)

var (
	// ErrNotFound is returned when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrForbidden matches every *ForbiddenError.
	ErrForbidden = errors.New("forbidden")
)

// ForbiddenError carries the decision that refused the deletion.
type ForbiddenError struct {
	Decision rbac.Decision
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Decision.Reason
}

// Is lets errors.Is(err, ErrForbidden) match.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// Document is the part of a documents row the deletion workflow reads.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	OrgID     string    `json:"org_id,omitempty"`
	IsPublic  bool      `json:"is_public"`
	FileURL   string    `json:"file_url,omitempty"`
	FileType  string    `json:"file_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and deletes document rows. A copy is a document with the same
// title and owner, typically the same file distributed to several
// organizations.
type Store interface {
	Get(ctx context.Context, id string) (*Document, error)
	ListCopies(ctx context.Context, title, ownerID string) ([]*Document, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// DeleteResult reports what a deletion removed.
type DeleteResult struct {
	DocumentIDs    []string `json:"document_ids"`
	RetainedIDs    []string `json:"retained_ids,omitempty"`
	ObjectsRemoved int      `json:"objects_removed"`
}
