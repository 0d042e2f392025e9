package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/jtoivola/fretwatch-go/internal/conf"
)

// TestMySQLStore_Integration runs the save/query path against a real MySQL
// server in a container. Skipped without a container runtime.
func TestMySQLStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	// Run panics rather than returning an error when no container runtime
	// exists, so probe the provider first.
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("fretwatch"),
		tcmysql.WithUsername("fretwatch"),
		tcmysql.WithPassword("secret"),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Output.MySQL.Enabled = true
	settings.Output.MySQL.Username = "fretwatch"
	settings.Output.MySQL.Password = "secret"
	settings.Output.MySQL.Database = "fretwatch"
	settings.Output.MySQL.Host = host
	settings.Output.MySQL.Port = port.Int()

	store := New(settings, nil)
	require.IsType(t, &MySQLStore{}, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Save(makeEvent(1, "E2", "highlight", base)))
	require.NoError(t, store.Save(makeEvent(2, "E2", "highlight", base.Add(time.Second))))

	counts, err := store.CountByNote()
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "E2", counts[0].Note)
	assert.EqualValues(t, 2, counts[0].Count)
}
