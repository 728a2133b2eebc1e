package object

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored payload.
type Object struct {
	Key       string
	SizeBytes int64
	MimeType  string
	// Checksum is the lowercase hex SHA-256 of the stored bytes.
	Checksum string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
// Stored objects are never rewritten in place; they are only created or deleted.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	Exists(ctx context.Context, storageKey string) (bool, error)
}

// HashingReader counts and hashes everything read through it.
type HashingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewHashingReader wraps r.
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, h: sha256.New()}
}

func (h *HashingReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if n > 0 {
		h.h.Write(p[:n])
		h.n += int64(n)
	}
	return n, err
}

// Size returns the number of bytes read so far.
func (h *HashingReader) Size() int64 { return h.n }

// Checksum returns the hex SHA-256 of the bytes read so far.
func (h *HashingReader) Checksum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}
