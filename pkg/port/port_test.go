package port

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	require.Equal(t, High, State(true))
	require.Equal(t, Low, State(false))
	require.NotEqual(t, Invalid, State(true))
	require.NotEqual(t, Invalid, State(false))
}
