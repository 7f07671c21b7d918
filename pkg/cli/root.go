package cli

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Options holds the flags shared by every subcommand
type Options struct {
	LibDir   string
	Server   string
	LogLevel string

	Out    io.Writer
	ErrOut io.Writer
}

// logger returns a text logger on the error stream at the configured level
func (o *Options) logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(o.ErrOut)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if lvl, err := logrus.ParseLevel(o.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// NewRootCommand creates the plughostctl command writing to the process streams
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithStreams(os.Stdout, os.Stderr)
}

// NewRootCommandWithStreams creates the plughostctl command writing to out and errOut
func NewRootCommandWithStreams(out, errOut io.Writer) *cobra.Command {
	o := &Options{Out: out, ErrOut: errOut}

	root := &cobra.Command{
		Use:   "plughostctl",
		Short: "plughostctl builds and inspects plughost plugins",
		Long: `plughostctl renders and builds plugin artifacts without a running host,
lists what is in a library directory, and reports on a running host.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&o.LibDir, "lib-dir", envOr("PLUGHOST_LIB_DIR", "./libs"), "library directory holding built artifacts")
	flags.StringVar(&o.Server, "server", envOr("PLUGHOST_SERVER", "http://127.0.0.1:3030"), "address of a running plughost")
	flags.StringVar(&o.LogLevel, "log-level", "warn", "log level for build output")

	root.AddCommand(
		newKindsCommand(o),
		newRenderCommand(o),
		newBuildCommand(o),
		newArtifactsCommand(o),
		newStatusCommand(o),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
