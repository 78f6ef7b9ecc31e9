package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"fetch", "batch", "vanguard", "retry", "runs", "report"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "prospectus-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunFlags_Registered(t *testing.T) {
	for _, cmd := range []string{"fetch", "batch", "vanguard", "retry"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		for _, name := range []string{"dry-run", "skip-existing", "max-funds", "concurrency", "label", "request-delay", "user-agent"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should have --%s", cmd, name)
		}
	}

	flag := batchCmd.Flags().Lookup("skip-existing")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
	assert.NotNil(t, batchCmd.Flags().ShorthandLookup("f"))
}

func TestFetchCommand_RequiresSymbol(t *testing.T) {
	require.Error(t, fetchCmd.Args(fetchCmd, nil))
	require.NoError(t, fetchCmd.Args(fetchCmd, []string{"VUSXX"}))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats", "queue"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestReportCommand_Flags(t *testing.T) {
	assert.NotNil(t, reportCmd.Flags().Lookup("xlsx"))
	assert.NotNil(t, reportCmd.Flags().Lookup("json"))
}

func TestInterruptContext_CancelsOnSIGINT(t *testing.T) {
	ctx, stop := interruptContext(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after SIGINT")
	}
}
