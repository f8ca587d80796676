package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassList(t *testing.T) {
	c := NewClassList("a", "b", "a", "")
	require.Equal(t, []string{"a", "b"}, c.Classes())

	c.Add("c", "b")
	require.Equal(t, []string{"a", "b", "c"}, c.Classes())

	c.Remove("a", "missing")
	require.Equal(t, []string{"b", "c"}, c.Classes())
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("c"))

	classes := c.Classes()
	classes[0] = "mutated"
	require.Equal(t, []string{"b", "c"}, c.Classes())
}
