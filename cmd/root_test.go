package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "run", "batch", "outcome", "guard", "routing"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lead-router", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestGuardCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range guardCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["status"])
	assert.True(t, names["clear"])
	assert.True(t, names["prune"])
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{cmd: "serve", flag: "port", def: "0"},
		{cmd: "run", flag: "file", def: ""},
		{cmd: "batch", flag: "file", def: ""},
		{cmd: "batch", flag: "limit", def: "0"},
		{cmd: "batch", flag: "concurrency", def: "0"},
		{cmd: "outcome", flag: "account", def: ""},
		{cmd: "outcome", flag: "outcome", def: ""},
		{cmd: "outcome", flag: "tech", def: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			f := c.Flags().Lookup(tt.flag)
			require.NotNil(t, f, "%s should have --%s", tt.cmd, tt.flag)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}
