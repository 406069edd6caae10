package main

import (
	"os"

	"github.com/riaintel/advflow/internal/cli/cmd"
	"github.com/riaintel/advflow/internal/cli/runner"
)

// Build-time version information, injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildDate)
	cmd.SetFactories(runner.Factories{
		CreateSourceAdapter: CreateSourceAdapterFunc,
		CreateProcessor:     CreateProcessorFunc,
		CreateConsumer:      CreateConsumerFunc,
	})

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
