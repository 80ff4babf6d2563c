//go:build js

package workspace

import (
	"context"
	"fmt"

	"github.com/hack-pad/hackpadfs/indexeddb"
)

// NewIndexedDBStore opens a browser-local store persisted in the IndexedDB
// database name.
func NewIndexedDBStore(ctx context.Context, name string, opts ...Option) (*Store, error) {
	fsys, err := indexeddb.NewFS(ctx, name, indexeddb.Options{})
	if err != nil {
		return nil, fmt.Errorf("open indexeddb %s: %w", name, err)
	}
	return newStore(fsys, "", opts...)
}
