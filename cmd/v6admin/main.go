package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vantage6/console/pkg/platform"
)

// These variables are set externally by the linker.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	ctx      context.Context
	creds    *credentials
	client   *platform.Client
	log      = logrus.New()
	quiet    bool
	format   string
	debug    bool
	jsonOut  *json.Encoder
	tableOut *tabwriter.Writer
)

const formatJSON = "json"

func main() {
	jsonOut = json.NewEncoder(os.Stdout)
	jsonOut.SetIndent("", "    ")

	tableOut = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tableOut.Flush()

	var cancel context.CancelFunc
	ctx, cancel = withSignal(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "v6admin <command>",
		Short:         "v6admin administers a vantage6 platform server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("v6admin %s (%q)", version, commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.SetLevel(logrus.DebugLevel)
			}

			var err error
			if creds, err = loadCredentials(); err != nil {
				return err
			}
			if cmd.Name() == "login" {
				return nil
			}
			if creds.Server == "" || creds.Token == "" {
				return fmt.Errorf("not logged in, run %s first", color.BlueString("v6admin login"))
			}

			log.WithField("server", creds.Server).Debug("connecting to platform")
			base, err := platform.NewClient(creds.Server)
			if err != nil {
				return err
			}
			client = base.WithToken(creds.Token)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode")
	root.PersistentFlags().StringVar(&format, "format", "", "Output format")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(newLoginCommand())
	root.AddCommand(newWhoAmICommand())
	root.AddCommand(newNodeCommand())
	root.AddCommand(newTaskCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// withSignal cancels the returned context on the first interrupt and exits
// outright on the second.
func withSignal(parent context.Context) (context.Context, context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		<-sigChan
		os.Exit(130)
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
