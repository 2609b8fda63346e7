package postgres

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is a stable timestamp for fixtures so expectations never race
// the wall clock.
var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// sliceConverter widens the default driver converter so []string
// parameters, which pgx binds as text arrays, survive the mock driver
// boundary. Real queries never see this encoding.
type sliceConverter struct{}

func (sliceConverter) ConvertValue(v any) (driver.Value, error) {
	if vals, ok := v.([]string); ok {
		return "{" + strings.Join(vals, ",") + "}", nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// newMockDB returns a sqlmock-backed handle whose expectations are
// verified on cleanup.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(sliceConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return db, mock
}

func intp(v int) *int {
	return &v
}

func timep(t time.Time) *time.Time {
	return &t
}

// nullable turns an optional fixture value into the driver value a row
// builder needs, writing NULL for nil.
func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
