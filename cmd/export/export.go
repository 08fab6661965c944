package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/sift-go/internal/datastore"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/privacy"
	"github.com/tphakala/sift-go/internal/secrets"
)

// Options holds the export command flags
type Options struct {
	Source             string
	Target             string
	TargetPasswordFile string
	BatchSize          int
	Clean              bool
	SkipVerify         bool
	Samples            int
}

// Command creates the export command, which copies a feature database into another one.
func Command() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a feature database into another database",
		Long: `Copy every camera, image, keypoint and descriptor of the --source database
into the --target database, keeping the ids. Both accept a SQLite path or a
mysql:// DSN. Rows already present in the target are skipped, so an
interrupted export can be rerun.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts, cmd.OutOrStdout())
		},
	}

	// Set up flags specific to the 'export' command
	setupFlags(cmd, opts)

	return cmd
}

func setupFlags(cmd *cobra.Command, opts *Options) {
	f := cmd.Flags()
	f.StringVar(&opts.Source, "source", "", "Source feature database")
	f.StringVar(&opts.Target, "target", "", "Target feature database")
	f.StringVar(&opts.TargetPasswordFile, "target_password_file", "", "File holding the MySQL password of the target")
	f.IntVar(&opts.BatchSize, "batch_size", datastore.DefaultExportBatchSize, "Rows per insert")
	f.BoolVar(&opts.Clean, "clean", false, "Delete all target rows before copying")
	f.BoolVar(&opts.SkipVerify, "skip_verify", false, "Skip the post-export comparison")
	f.IntVar(&opts.Samples, "verify_samples", 10, "Images whose features are compared byte by byte")

	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
}

// Run exports opts.Source into opts.Target and prints a summary to out
func Run(opts *Options, out io.Writer) error {
	log := datastore.GetLogger()

	source, err := secrets.ExpandString(opts.Source)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(source, datastore.MySQLScheme) {
		if _, err := os.Stat(source); err != nil {
			return errors.New(fmt.Errorf("source database not found: %w", err)).
				Component("export").
				Category(errors.CategoryFileIO).
				FileContext(source).
				Build()
		}
	}
	target, err := secrets.ResolveDatabasePath(opts.Target, opts.TargetPasswordFile)
	if err != nil {
		return err
	}

	log.Info("exporting feature database",
		logger.String("source", privacy.RedactDSN(source)),
		logger.String("target", privacy.RedactDSN(target)),
		logger.Int("batch_size", opts.BatchSize),
		logger.Bool("clean", opts.Clean))

	src, err := datastore.Open(source, log)
	if err != nil {
		return err
	}
	defer closeStore(src, log)

	dst, err := datastore.Open(target, log)
	if err != nil {
		return err
	}
	defer closeStore(dst, log)

	stats, err := datastore.Export(src, dst, datastore.ExportOptions{BatchSize: opts.BatchSize, Clean: opts.Clean})
	if err != nil {
		return err
	}
	printStats(out, stats)

	if opts.SkipVerify {
		return nil
	}
	if err := datastore.VerifyExport(src, dst, opts.Samples); err != nil {
		return err
	}
	fmt.Fprintln(out, "Verification passed")
	return nil
}

func printStats(out io.Writer, stats *datastore.ExportStats) {
	fmt.Fprintf(out, "%-12s %10s %10s %12s\n", "Table", "Copied", "Skipped", "Duration")
	var copied, skipped int64
	for _, t := range stats.Tables {
		fmt.Fprintf(out, "%-12s %10d %10d %12s\n", t.Name, t.Copied, t.Skipped, t.Duration.Round(time.Millisecond))
		copied += t.Copied
		skipped += t.Skipped
	}
	fmt.Fprintf(out, "%-12s %10d %10d %12s\n", "TOTAL", copied, skipped, stats.Elapsed.Round(time.Millisecond))
}

func closeStore(s *datastore.Store, log logger.Logger) {
	if err := s.Close(); err != nil {
		log.Warn("failed to close database", logger.String("location", s.Location()), logger.Error(err))
	}
}
