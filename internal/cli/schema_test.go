package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "buscador", Short: "search"}
	root.PersistentFlags().Bool("json", false, "Output as JSON")
	AddHelpJSONFlag(root)

	batch := &cobra.Command{
		Use:       "batch <companies|people|jobs> <file.csv>",
		Short:     "Run a batch",
		ValidArgs: []string{"companies", "people", "jobs"},
		Args:      cobra.ExactArgs(2),
		RunE:      func(*cobra.Command, []string) error { return nil },
	}
	batch.Flags().StringP("out", "o", "", "Report path")
	batch.Flags().String("token", "", "Required token")
	_ = batch.MarkFlagRequired("token")

	hidden := &cobra.Command{Use: "secret", Hidden: true, Run: func(*cobra.Command, []string) {}}
	root.AddCommand(batch, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testRoot())

	assert.Equal(t, "buscador", schema.Name)
	require.Len(t, schema.Subcommands, 1)

	batch := schema.Subcommands[0]
	assert.Equal(t, "batch", batch.Name)
	assert.Equal(t, []string{"companies", "people", "jobs"}, batch.ValidArgs)

	flags := map[string]FlagSchema{}
	for _, f := range batch.Flags {
		flags[f.Name] = f
	}
	assert.Equal(t, "o", flags["out"].Shorthand)
	assert.False(t, flags["out"].Required)
	assert.True(t, flags["token"].Required)
	assert.True(t, flags["json"].Inherited)
	assert.NotContains(t, flags, "help-json")
	assert.NotContains(t, flags, "help")
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testRoot()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "buscador", decoded.Name)
}

func TestHelpJSONTarget(t *testing.T) {
	root := testRoot()

	cmd, ok := HelpJSONTarget(root, []string{"batch", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, "batch", cmd.Name())

	cmd, ok = HelpJSONTarget(root, []string{"--help-json"})
	require.True(t, ok)
	assert.Same(t, root, cmd)

	cmd, ok = HelpJSONTarget(root, []string{"unknown", "--help-json"})
	require.True(t, ok)
	assert.Same(t, root, cmd)

	_, ok = HelpJSONTarget(root, []string{"batch", "people", "in.csv"})
	assert.False(t, ok)
}
