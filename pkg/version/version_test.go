package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetIgnoresEmpty(t *testing.T) {
	prev := version
	t.Cleanup(func() { version = prev })

	Set("1.2.3")
	Set("")
	require.Equal(t, "1.2.3", version)
	require.Contains(t, String(), Name+" ")
}
