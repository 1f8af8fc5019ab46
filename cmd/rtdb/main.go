// Command rtdb reads, writes and watches a Realtime Database over REST.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/rtdbkit/version"
)

type globalFlags struct {
	url        string
	configFile string
	envFile    string
	logLevel   string
	timeout    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "rtdb",
		Short:         "Realtime Database command line client",
		Long:          "rtdb reads, writes and watches locations of a Realtime Database through its REST API.",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.url, "url", "", "database URL (overrides rtdb.url / RTDB_URL)")
	pf.StringVar(&flags.configFile, "config", "", "config file (default: search rtdb.yml, config.yml)")
	pf.StringVar(&flags.envFile, "env-file", "", ".env file to load")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "REST request timeout")

	root.AddCommand(
		getCmd(flags),
		writeCmd(flags, "set <path> <json>", "Replace the value at a location", opSet),
		writeCmd(flags, "update <path> <json>", "Merge children into a location", opUpdate),
		writeCmd(flags, "push <path> <json>", "Append a child with a generated key", opPush),
		deleteCmd(flags),
		watchCmd(flags),
		versionCmd(),
	)
	return root
}
