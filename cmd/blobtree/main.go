package main

import "github.com/3leaps/blobtree/internal/cmd"

// Set by -ldflags at release build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	cmd.Execute()
}
