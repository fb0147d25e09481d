package cli

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func TestVerboseFlagLowersLevelToDebug(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prevVerbose := verbose
	defer func() {
		zerolog.SetGlobalLevel(prevLevel)
		verbose = prevVerbose
	}()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cmd := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--verbose", "volumes"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("volumes with --verbose failed: %v", err)
	}

	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Errorf("--verbose must select the debug level, got %s", got)
	}
}
