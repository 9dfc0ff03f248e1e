package cli

import (
	"io"

	"github.com/denismitr/salesdb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	File       string
	Format     string // "json" | "text"
	LogLevel   string
}

var ValidFormats = []string{"text", "json"}

const defaultLogLevel = "warn"

// NewRootCommand creates the root command of the salesdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "salesdb",
		Short: "Manage sales records stored in a flat file",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return errors.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "backing file, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides the config file")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openDB resolves the configuration from flags and the optional config
// file, then opens the store. Logs go to errOut.
func (o *RootOptions) openDB(errOut io.Writer) (*salesdb.DB, salesdb.Closer, error) {
	fc := &salesdb.FileConfig{LogLevel: defaultLogLevel}
	if o.ConfigPath != "" {
		loaded, err := salesdb.LoadConfig(o.ConfigPath)
		if err != nil {
			return nil, salesdb.NullCloser, err
		}
		fc = loaded
	}

	if o.File != "" {
		fc.File = o.File
	}

	if o.LogLevel != "" {
		fc.LogLevel = o.LogLevel
	}

	if fc.File == "" {
		return nil, salesdb.NullCloser, errors.Errorf("no backing file: pass --file or set file in the config")
	}

	logger, err := newLogger(fc.LogLevel, errOut)
	if err != nil {
		return nil, salesdb.NullCloser, err
	}

	return salesdb.Open(fc.File, fc.Config(logger))
}

func newLogger(level string, out io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(out),
		lvl,
	)

	return zap.New(core), nil
}

// withDB opens the store for the duration of fn.
func (o *RootOptions) withDB(cmd *cobra.Command, fn func(db *salesdb.DB) error) (err error) {
	db, closer, err := o.openDB(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		if cErr := closer(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return fn(db)
}
