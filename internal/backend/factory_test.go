package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/config"
	"finboard/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", DataDirectory: "data"}, cfg)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := NewFactory(nil)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend, DataDirectory: dir}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "ledger.db"), DataDirectory: dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.cfg)
			require.NoError(t, err)
			if res.Cleanup != nil {
				t.Cleanup(func() { res.Cleanup() })
			}
			require.NoError(t, res.Ready(ctx))

			acc, err := res.Store.CreateAccount(ctx, core.Account{Name: "Wallet", TypeID: "type_4"})
			require.NoError(t, err)
			got, err := res.Store.GetAccount(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, "Wallet", got.Name)
		})
	}
}

func TestCreateBackendRejectsMissingPath(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}
