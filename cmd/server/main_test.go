package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		reqnumCanonical = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReqnumCommand(t *testing.T) {
	out, err := execute(t, "reqnum", "4b", "6Aa1")
	require.NoError(t, err)
	assert.Equal(t, "4(b)\n6A(a)(1)\n", out)

	out, err = execute(t, "reqnum", "--canonical", "2(a)(12)")
	require.NoError(t, err)
	assert.Equal(t, "2a12\n", out)

	_, err = execute(t, "reqnum", "--canonical", "x1")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "import-badges", "import-roster", "reqnum"} {
		assert.True(t, names[want], want)
	}

	_, err := execute(t, "import-roster", "roster.csv")
	assert.ErrorContains(t, err, "required flag")
}
