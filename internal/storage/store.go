// Package storage provides the persistence port used by the planner.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrQuotaExceeded is returned when a write would exceed the backend's
	// capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage closed")
)

// KV is a durable key-value store holding one JSON document per key.
// This abstraction allows swapping storage backends (SQLite, Redis, memory)
// without changing the domain store.
type KV interface {
	// Get returns the value stored under key.
	// The boolean is false when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// FailureKind classifies a failed write.
type FailureKind string

const (
	FailureQuota FailureKind = "quota"
	FailureOther FailureKind = "other"
)

// Classify reports whether err is a capacity problem or something else.
func Classify(err error) FailureKind {
	if errors.Is(err, ErrQuotaExceeded) {
		return FailureQuota
	}
	// Backends that do not wrap ErrQuotaExceeded still tend to say so.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "database or disk is full") {
		return FailureQuota
	}
	return FailureOther
}
