package postgres

import (
	"testing"

	"github.com/battlegrid/engine/internal/config"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func unreachable() config.PostgresConfig {
	return config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "battlegrid",
	}
}

func TestNew(t *testing.T) {
	b := New(unreachable(), nil, zerolog.Nop())
	require.NotNil(t, b)
	assert.Nil(t, b.DB(), "no connection before Init")
}

func TestInit_Unreachable(t *testing.T) {
	b := New(unreachable(), nil, zerolog.Nop())

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
	assert.NoError(t, b.Close())
}

func TestRecordAttack_BeforeStart(t *testing.T) {
	b := New(unreachable(), nil, zerolog.Nop())
	assert.ErrorIs(t, b.RecordAttack(&core.AttackEvent{}), storage.ErrNoBattle)
}
