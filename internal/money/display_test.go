package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1.234,50", FormatAmount(1234.5))
	require.Equal(t, "0,00", FormatAmount(0))
	require.Equal(t, "12,35", FormatAmount(12.345))
}
