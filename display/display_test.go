package display

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	m.Run()
}

func TestShouldOutputJSON(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		cmd.Flags().Bool("json", false, "")
		return cmd
	}

	t.Run("default is human output", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		assert.False(t, ShouldOutputJSON(newCmd()))
		assert.False(t, ShouldOutputJSON(nil))
	})

	t.Run("flag", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(cmd))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "JSON")
		assert.True(t, ShouldOutputJSON(newCmd()))
		assert.True(t, ShouldOutputJSON(nil))
	})

	t.Run("explicit flag beats environment", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "false"))
		assert.False(t, ShouldOutputJSON(cmd))
	})
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"ruby": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["ruby"])
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []string{"TYPE", "VALUE"}, [][]string{
		{"skill", "pottery"},
		{"tag", "ruby"},
	}))
	out := buf.String()
	for _, want := range []string{"TYPE", "VALUE", "skill", "pottery", "ruby"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	require.NoError(t, Table(&buf, []string{"TYPE"}, nil))
	assert.Equal(t, "(none)\n", buf.String())
}

func TestTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, []TreeItem{
		{0, "tag"},
		{1, "skill"},
		{2, "craft"},
		{1, "language"},
	}))
	out := buf.String()
	for _, want := range []string{"tag", "skill", "craft", "language"} {
		assert.Contains(t, out, want)
	}
}
