// Package files stores uploads on local disk under md5-sharded paths and
// tracks them as file records.
package files

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Storage writes uploads below root. The on-disk path of a file is derived
// from its content hash, so identical uploads share one file.
type Storage struct {
	root    string
	records *store.FileStore
	logger  *observability.Logger
}

// NewStorage creates the storage rooted at root, creating it if needed.
func NewStorage(root string, records *store.FileStore, logger *observability.Logger) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload root %s: %w", root, err)
	}
	return &Storage{root: root, records: records, logger: logger}, nil
}

// Save streams src to disk and records it. The stored path is
// <root>/<md5[0]>/<md5[1]>/<md5><ext>; attribution fields on rec (creator,
// dept_belong_id, modifier) are preserved.
func (s *Storage) Save(ctx context.Context, name string, mime string, src io.Reader, rec *store.FileRecord) (*store.FileRecord, error) {
	tmp, err := os.CreateTemp(s.root, ".upload-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("creating temp upload: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hash := md5.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("writing upload %s: %w", name, err)
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	relPath := ShardPath(sum, filepath.Ext(name))
	target := filepath.Join(s.root, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if err := os.Rename(tmpName, target); err != nil {
			return nil, fmt.Errorf("storing upload %s: %w", name, err)
		}
	}

	if rec == nil {
		rec = &store.FileRecord{}
	}
	rec.Name = name
	rec.URL = relPath
	rec.MD5Sum = sum
	rec.Size = size
	rec.Mime = mime
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Open returns the record and content of a stored file.
func (s *Storage) Open(ctx context.Context, id int64) (*store.FileRecord, io.ReadSeekCloser, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rec.URL)))
	if err != nil {
		return nil, nil, fmt.Errorf("opening stored file %d: %w", id, err)
	}
	return rec, f, nil
}

// Delete removes the record. The disk file stays: identical content shares
// one path across records.
func (s *Storage) Delete(ctx context.Context, id int64, hard bool) error {
	return s.records.Delete(ctx, id, hard)
}

// ShardPath renders the relative storage path for a content hash, e.g.
// "d4/1d/d41d8cd98f00b204e9800998ecf8427e.png". The extension is
// lower-cased; paths always use forward slashes.
func ShardPath(md5sum, ext string) string {
	return path.Join(md5sum[:2], md5sum[2:4], md5sum+strings.ToLower(ext))
}
