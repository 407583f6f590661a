package migration

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/smallbiznis/invoicer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	count := 0
	for {
		up, _, err := src.ReadUp(version)
		require.NoError(t, err)
		up.Close()

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "version %d has no down migration", version)
		down.Close()

		count++
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
		version = next
	}
	assert.Equal(t, 4, count)
}

func TestMigrateAutoMigratesOtherDialects(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, Migrate(db, "sqlite"))

	for _, table := range []string{"invoices", "invoice_items", "quotations", "quotation_items", "company_info", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasIndex("invoices", "ux_invoices_invoice_number"))
	assert.True(t, db.Migrator().HasColumn("quotations", "converted_invoice_id"))
}

func TestMigrateRequiresConnection(t *testing.T) {
	assert.Error(t, Migrate(nil, "sqlite"))
}
