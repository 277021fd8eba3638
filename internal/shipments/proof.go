package shipments

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ProofStore persists proof-of-delivery photos and returns the stored key.
type ProofStore interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// DiskProofStore writes photos under a local directory. Keys are opaque
// uuid-based file names.
type DiskProofStore struct {
	dir string
}

// NewDiskProofStore builds a DiskProofStore, creating the directory.
func NewDiskProofStore(dir string) (*DiskProofStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create proof dir: %w", err)
	}
	return &DiskProofStore{dir: dir}, nil
}

// Save writes the photo bytes and returns its key.
func (s *DiskProofStore) Save(_ context.Context, data []byte) (string, error) {
	key := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write proof photo: %w", err)
	}
	return key, nil
}
