// Package storage defines the small key-value contract the gateway persists
// cookies and recent searches through.
package storage

import (
	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
)

// ErrNotFound is returned by Get and Delete when the key is absent.
var ErrNotFound = gwerrors.ErrNotFound

// KV stores opaque values grouped by bucket.
type KV interface {
	Get(bucket, key string) ([]byte, error)
	Put(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	Keys(bucket string) ([]string, error)
	Close() error
}
