// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"testing"

	"src.manglr.sh/pkg/store/storedefs"
)

func matchErr(e1, e2 error) bool {
	return (e1 == nil && e2 == nil) || (e1 != nil && e2 != nil && e1.Error() == e2.Error())
}

// TestToken tests the token functionality of a Store.
func TestToken(t *testing.T, store storedefs.Store) {
	if _, err := store.Token("auth"); !matchErr(err, storedefs.ErrNoToken) {
		t.Errorf("want ErrNoToken for a missing token, got %v", err)
	}
	if err := store.SetToken("auth", "abc"); err != nil {
		t.Errorf("SetToken: %v", err)
	}
	if tok, err := store.Token("auth"); tok != "abc" || err != nil {
		t.Errorf(`Token -> (%q, %v), want ("abc", nil)`, tok, err)
	}
	if err := store.SetToken("auth", "def"); err != nil {
		t.Errorf("SetToken: %v", err)
	}
	if tok, _ := store.Token("auth"); tok != "def" {
		t.Errorf(`Token -> %q after overwriting, want "def"`, tok)
	}
	if err := store.DelToken("auth"); err != nil {
		t.Errorf("DelToken: %v", err)
	}
	if _, err := store.Token("auth"); !matchErr(err, storedefs.ErrNoToken) {
		t.Errorf("want ErrNoToken after DelToken, got %v", err)
	}
}

// TestCache tests the item cache functionality of a Store.
func TestCache(t *testing.T, store storedefs.Store) {
	if _, err := store.CachedItems("todos"); !matchErr(err, storedefs.ErrNoCache) {
		t.Errorf("want ErrNoCache for a missing entry, got %v", err)
	}
	seq1, err := store.SetCachedItems("todos", []byte(`[1]`))
	if err != nil {
		t.Errorf("SetCachedItems: %v", err)
	}
	seq2, _ := store.SetCachedItems("todos", []byte(`[1,2]`))
	if seq2 <= seq1 {
		t.Errorf("sequence did not increase: %d then %d", seq1, seq2)
	}
	c, err := store.CachedItems("todos")
	if err != nil || string(c.Items) != `[1,2]` || c.Seq != seq2 {
		t.Errorf("CachedItems -> (%s, %d, %v), want ([1,2], %d, nil)",
			c.Items, c.Seq, err, seq2)
	}
	if _, err := store.CachedItems("other"); !matchErr(err, storedefs.ErrNoCache) {
		t.Errorf("entries leak between stores, got %v", err)
	}
}
