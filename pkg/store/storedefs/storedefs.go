// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store API
// do not need to depend on the concrete implementation.
package storedefs

import "errors"

// ErrNoToken is returned by Token when no token is stored for an
// authentication controller.
var ErrNoToken = errors.New("no stored token")

// ErrNoCache is returned by CachedItems when nothing is cached for a store.
var ErrNoCache = errors.New("no cached items")

// Store is an interface satisfied by the storage service.
type Store interface {
	Token(authID string) (string, error)
	SetToken(authID, token string) error
	DelToken(authID string) error

	CachedItems(storeID string) (Cache, error)
	SetCachedItems(storeID string, items []byte) (int, error)
}

// Cache is the last successful fetch of a remote store.
type Cache struct {
	// JSON encoding of the items.
	Items []byte
	// Increases with every fetch cached in the database.
	Seq int
}
