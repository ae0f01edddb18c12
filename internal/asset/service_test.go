package asset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

type fakeStore struct {
	attachments map[string]*Attachment
	purged      []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{attachments: make(map[string]*Attachment)}
}

func (f *fakeStore) CreateAttachment(_ context.Context, a *Attachment) error {
	f.attachments[a.ID] = a
	return nil
}

func (f *fakeStore) GetAttachment(_ context.Context, id string) (*Attachment, error) {
	a, ok := f.attachments[id]
	if !ok {
		return nil, ErrAttachmentNotFound
	}
	return a, nil
}

func (f *fakeStore) SetAttachmentParent(_ context.Context, id, parentID string) error {
	a, ok := f.attachments[id]
	if !ok || a.DeletedAt != nil {
		return ErrAttachmentNotFound
	}
	a.ParentID = &parentID
	return nil
}

func (f *fakeStore) MarkAttachmentDeleted(_ context.Context, id string) error {
	a, ok := f.attachments[id]
	if !ok || a.DeletedAt != nil {
		return ErrAttachmentNotFound
	}
	now := time.Now()
	a.DeletedAt = &now
	return nil
}

func (f *fakeStore) ListDeletedAttachments(_ context.Context, limit int) ([]Attachment, error) {
	var out []Attachment
	for _, a := range f.attachments {
		if a.DeletedAt != nil {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) PurgeAttachment(_ context.Context, id string) error {
	delete(f.attachments, id)
	f.purged = append(f.purged, id)
	return nil
}

type fakeObjects struct {
	blobs     map[string][]byte
	removeErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{blobs: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, _ := io.ReadAll(r)
	f.blobs[key] = data
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.blobs, key)
	return nil
}

func TestUpload(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	s := NewService(store, objects)

	a, err := s.Upload(context.Background(), "alice", "pic.png", "image/png", 3, bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if a.ObjectKey != "attachments/"+a.ID {
		t.Errorf("object key = %q", a.ObjectKey)
	}
	if string(objects.blobs[a.ObjectKey]) != "abc" {
		t.Error("blob not stored")
	}
	if _, ok := store.attachments[a.ID]; !ok {
		t.Error("record not stored")
	}
}

func TestUseAsIcon_RejectsDeleted(t *testing.T) {
	store := newFakeStore()
	s := NewService(store, newFakeObjects())

	now := time.Now()
	store.attachments["a1"] = &Attachment{ID: "a1", DeletedAt: &now}

	if _, err := s.UseAsIcon(context.Background(), "a1", "c1"); !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("error = %v, want ErrAttachmentNotFound", err)
	}
}

func TestUseAsIcon_BindsParent(t *testing.T) {
	store := newFakeStore()
	s := NewService(store, newFakeObjects())
	store.attachments["a1"] = &Attachment{ID: "a1"}

	id, err := s.UseAsIcon(context.Background(), "a1", "c1")
	if err != nil {
		t.Fatalf("UseAsIcon() error = %v", err)
	}
	if id != "a1" {
		t.Errorf("id = %q", id)
	}
	if store.attachments["a1"].ParentID == nil || *store.attachments["a1"].ParentID != "c1" {
		t.Error("parent not bound")
	}
}

func TestMarkForDeletion_Idempotent(t *testing.T) {
	store := newFakeStore()
	s := NewService(store, newFakeObjects())
	store.attachments["a1"] = &Attachment{ID: "a1"}

	if err := s.MarkForDeletion(context.Background(), "a1"); err != nil {
		t.Fatalf("first mark error = %v", err)
	}
	if err := s.MarkForDeletion(context.Background(), "a1"); err != nil {
		t.Fatalf("second mark error = %v, want nil", err)
	}
	if err := s.MarkForDeletion(context.Background(), "gone"); err != nil {
		t.Fatalf("missing asset error = %v, want nil", err)
	}
}

func TestNewCollector_ClampsInterval(t *testing.T) {
	c := NewCollector(newFakeStore(), newFakeObjects(), 0)
	if c.interval <= 0 {
		t.Fatal("a non-positive interval must be clamped, Start would panic on it")
	}
}

func TestCollector_Sweep(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	c := NewCollector(store, objects, time.Minute)

	now := time.Now()
	store.attachments["a1"] = &Attachment{ID: "a1", ObjectKey: "attachments/a1", DeletedAt: &now}
	objects.blobs["attachments/a1"] = []byte("x")

	c.Sweep(context.Background())

	if len(store.purged) != 1 || store.purged[0] != "a1" {
		t.Errorf("purged = %v", store.purged)
	}
	if _, ok := objects.blobs["attachments/a1"]; ok {
		t.Error("blob not removed")
	}
}

func TestCollector_FailedRemovalRetriesLater(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	objects.removeErr = errors.New("s3 down")
	c := NewCollector(store, objects, time.Minute)

	now := time.Now()
	store.attachments["a1"] = &Attachment{ID: "a1", ObjectKey: "attachments/a1", DeletedAt: &now}

	c.Sweep(context.Background())

	if len(store.purged) != 0 {
		t.Error("record must survive a failed blob removal so the next sweep retries")
	}
}
