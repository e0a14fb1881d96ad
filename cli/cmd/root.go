package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wkalt/outline/cli/client"
)

var (
	serverURL string
	sharedKey string
)

var rootCmd = &cobra.Command{
	Use:           "outline",
	Short:         "outline client and server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		bailf("error: %v", err)
	}
}

func bailf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func newClient() *client.Client {
	return client.New(serverURL, sharedKey)
}

// execute runs the command line args against the root command and resets
// every flag afterward, so that one invocation's flags do not leak into the
// next one in the shell.
func execute(ctx context.Context, args []string) error {
	defer resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server-url", "", "http://localhost:8089", "server-url")
	rootCmd.PersistentFlags().StringVarP(&sharedKey, "shared-key", "", os.Getenv("OUTLINE_SHARED_KEY"), "shared key to use for authentication")
}
