//go:build !sqlite

package storage

import "testing"

func TestNewStoreSQLiteUnavailable(t *testing.T) {
	if _, err := NewStore("sqlite", "x.db"); err == nil {
		t.Fatal("expected sqlite to be unavailable without the build tag")
	}
}
