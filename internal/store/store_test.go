package store_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/phrazzld/augur/internal/store"
	"github.com/stretchr/testify/assert"
)

// Compile-time checks that both connection handles satisfy DBTX, so stores
// can run the same queries inside and outside a transaction.
var (
	_ store.DBTX = (*sql.DB)(nil)
	_ store.DBTX = (*sql.Tx)(nil)
)

// TestErrorDefinitions ensures that the error definitions in the store
// package are defined as expected and can be used with errors.Is.
func TestErrorDefinitions(t *testing.T) {
	t.Parallel()

	// Create functions that return the standard errors
	// This simulates how store implementations might return these errors
	taskNotFoundFn := func() error {
		return store.ErrTaskNotFound
	}

	mappingExistsFn := func() error {
		return store.ErrMappingExists
	}

	// Test ErrTaskNotFound
	t.Run("ErrTaskNotFound", func(t *testing.T) {
		t.Parallel()

		// Get the error from the function
		err := taskNotFoundFn()

		// Verify it can be detected with errors.Is
		assert.True(t, errors.Is(err, store.ErrTaskNotFound))
		assert.True(t, errors.Is(err, store.ErrNotFound))
		assert.False(t, errors.Is(err, store.ErrMappingExists))
	})

	// Test ErrMappingExists
	t.Run("ErrMappingExists", func(t *testing.T) {
		t.Parallel()

		// Get the error from the function
		err := mappingExistsFn()

		// Verify it can be detected with errors.Is
		assert.True(t, errors.Is(err, store.ErrMappingExists))
		assert.True(t, errors.Is(err, store.ErrDuplicate))
		assert.False(t, errors.Is(err, store.ErrNotFound))
	})
}
