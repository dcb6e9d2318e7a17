// Package pinstore keeps uploaded artwork and metadata documents addressed
// by their content identifier.
package pinstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrNotFound indicates no object is stored under the identifier.
var ErrNotFound = errors.New("pinstore: not found")

// Object is one stored blob.
type Object struct {
	CID         string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Store defines persistence operations for pinned objects. Put is
// idempotent: storing identical bytes twice keeps a single object.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, id string) (Object, error)
	Close() error
}

// Sum computes the CIDv1 (raw codec, sha2-256) of data.
func Sum(data []byte) (string, error) {
	hash, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, hash).String(), nil
}

// Pin computes the identifier of data and stores it.
func Pin(ctx context.Context, store Store, contentType string, data []byte) (string, error) {
	id, err := Sum(data)
	if err != nil {
		return "", err
	}
	obj := Object{CID: id, ContentType: contentType, Data: data, CreatedAt: time.Now().UTC()}
	if err := store.Put(ctx, obj); err != nil {
		return "", fmt.Errorf("store %s: %w", id, err)
	}
	return id, nil
}

// Normalize parses id and returns its canonical string form, so CIDv0 and
// upper-case inputs resolve to the stored key.
func Normalize(id string) (string, error) {
	parsed, err := cid.Decode(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if parsed.Version() == 0 {
		parsed = cid.NewCidV1(cid.DagProtobuf, parsed.Hash())
	}
	return parsed.String(), nil
}
