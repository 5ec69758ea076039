// Package storage defines the key-value blob store the transactions of each
// user live in, plus the codec for the stored document.
//
// A user's transactions are one JSON array under TransactionsKey(userID).
// Backends only move opaque strings; they never interpret the blob.
package storage

import (
	"context"
	"errors"
	"strings"
)

const keyPrefix = "@gofinances:transactions_user:"

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage: store is closed")

// Store is a string key-value store. Set is last-writer-wins.
type Store interface {
	// Get returns the blob stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (blob string, found bool, err error)
	Set(ctx context.Context, key, blob string) error
	Close() error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TransactionsKey returns the key holding userID's transactions.
func TransactionsKey(userID string) string {
	return keyPrefix + userID
}

// UserFromKey extracts the user id from a transactions key.
func UserFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, keyPrefix)
	return id, id != ""
}
