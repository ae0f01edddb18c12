package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrAttachmentNotFound = errors.New("attachment not found")

// Attachment is the database record for an uploaded blob. The blob itself
// lives in the object store under ObjectKey. Deletion is two-phase: the
// record is marked via DeletedAt, then the collector removes the blob and
// purges the record.
type Attachment struct {
	ID          string     `json:"id"`
	MessageID   *string    `json:"message_id,omitempty"`
	ParentID    *string    `json:"parent_id,omitempty"`
	UploaderID  *string    `json:"uploader_id,omitempty"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	ObjectKey   string     `json:"-"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Store is the slice of the storage gateway attachments go through.
type Store interface {
	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id string) (*Attachment, error)
	SetAttachmentParent(ctx context.Context, id, parentID string) error
	// MarkAttachmentDeleted must only touch records not already marked,
	// so two concurrent deletes cannot both report success.
	MarkAttachmentDeleted(ctx context.Context, id string) error
	ListDeletedAttachments(ctx context.Context, limit int) ([]Attachment, error)
	PurgeAttachment(ctx context.Context, id string) error
}

// ObjectStore holds attachment blobs. Backed by minio in production.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Service is the asset-lifecycle collaborator: it uploads blobs, binds
// attachments to the entities using them, and schedules cleared assets
// for collection.
type Service struct {
	store   Store
	objects ObjectStore
}

func NewService(store Store, objects ObjectStore) *Service {
	return &Service{store: store, objects: objects}
}

// Upload stores the blob and creates its attachment record.
func (s *Service) Upload(ctx context.Context, uploaderID, filename, contentType string, size int64, r io.Reader) (*Attachment, error) {
	a := &Attachment{
		ID:          ulid.Make().String(),
		UploaderID:  &uploaderID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   time.Now().UTC(),
	}
	a.ObjectKey = "attachments/" + a.ID

	if err := s.objects.Put(ctx, a.ObjectKey, r, size, contentType); err != nil {
		return nil, fmt.Errorf("storing attachment blob: %w", err)
	}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UseAsIcon verifies the attachment exists and is live, binds it to the
// channel and returns its ID.
func (s *Service) UseAsIcon(ctx context.Context, assetID, channelID string) (string, error) {
	a, err := s.store.GetAttachment(ctx, assetID)
	if err != nil {
		return "", err
	}
	if a.DeletedAt != nil {
		return "", ErrAttachmentNotFound
	}
	if err := s.store.SetAttachmentParent(ctx, assetID, channelID); err != nil {
		return "", err
	}
	return a.ID, nil
}

// MarkForDeletion schedules the asset for background collection.
func (s *Service) MarkForDeletion(ctx context.Context, assetID string) error {
	err := s.store.MarkAttachmentDeleted(ctx, assetID)
	if errors.Is(err, ErrAttachmentNotFound) {
		// Already marked or gone; scheduling is idempotent.
		return nil
	}
	return err
}
