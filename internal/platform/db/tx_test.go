package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestDefaultTxOptionsLetRowLocksBlock(t *testing.T) {
	// Series allocation and payment registration serialize on row locks.
	// Repeatable read would turn a blocked FOR UPDATE into SQLSTATE 40001
	// once the holder commits; read committed lets the waiter proceed.
	require.Equal(t, pgx.ReadCommitted, DefaultTxOptions.IsoLevel)
}
