package history

import (
	"context"
	"errors"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/blobstore"
)

// BlobStore keeps transcripts next to the Task API data at conversations/<id>.json.
type BlobStore struct {
	store blobstore.Store
}

func NewBlobStore(store blobstore.Store) *BlobStore {
	return &BlobStore{store: store}
}

func blobKey(id string) string {
	return "conversations/" + id + ".json"
}

func (s *BlobStore) Load(ctx context.Context, id string) (assistant.Transcript, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := s.store.Get(ctx, blobKey(id))
	if errors.Is(err, blobstore.ErrNotFound) {
		return assistant.Transcript{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(id, data)
}

func (s *BlobStore) Save(ctx context.Context, id string, t assistant.Transcript) error {
	if err := validateID(id); err != nil {
		return err
	}
	data, err := encodeRecord(id, t)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, blobKey(id), data)
}

func (s *BlobStore) Clear(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := s.store.Delete(ctx, blobKey(id))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	return err
}
