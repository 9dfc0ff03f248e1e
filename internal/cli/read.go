package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/denismitr/salesdb"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const flagDateLayout = "2006-01-02"

func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every record in file order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDB(cmd, func(db *salesdb.DB) error {
				return printRecords(cmd.OutOrStdout(), opts.Format, db.All())
			})
		},
	}
}

func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index>",
		Short: "Print the record with the given index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			return opts.withDB(cmd, func(db *salesdb.DB) error {
				r, err := db.Get(index)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts.Format, []salesdb.Record{r})
			})
		},
	}
}

type filterOptions struct {
	status     string
	category   string
	fulfilment string
	channel    string
	city       string
	state      string
	minAmount  string
	maxAmount  string
	startDate  string
	endDate    string
}

func (fo *filterOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&fo.status, "status", "", "match status, case-insensitive")
	flags.StringVar(&fo.category, "category", "", "match category, case-insensitive")
	flags.StringVar(&fo.fulfilment, "fulfilment", "", "match fulfilment, case-insensitive")
	flags.StringVar(&fo.channel, "channel", "", "match sales channel, case-insensitive")
	flags.StringVar(&fo.city, "city", "", "match ship city, case-insensitive")
	flags.StringVar(&fo.state, "state", "", "match ship state, case-insensitive")
	flags.StringVar(&fo.minAmount, "min-amount", "", "inclusive lower amount bound")
	flags.StringVar(&fo.maxAmount, "max-amount", "", "inclusive upper amount bound")
	flags.StringVar(&fo.startDate, "start-date", "", "inclusive start date (yyyy-mm-dd)")
	flags.StringVar(&fo.endDate, "end-date", "", "inclusive end date (yyyy-mm-dd)")
}

// query builds a Query from the flags that were actually set.
func (fo *filterOptions) query(cmd *cobra.Command) (*salesdb.Query, error) {
	q := salesdb.Q()
	flags := cmd.Flags()

	text := []struct {
		name  string
		value string
		set   func(string) *salesdb.Query
	}{
		{"status", fo.status, q.Status},
		{"category", fo.category, q.Category},
		{"fulfilment", fo.fulfilment, q.Fulfilment},
		{"channel", fo.channel, q.Channel},
		{"city", fo.city, q.City},
		{"state", fo.state, q.State},
	}

	for _, f := range text {
		if flags.Changed(f.name) {
			f.set(f.value)
		}
	}

	if flags.Changed("min-amount") {
		a, err := decimal.NewFromString(fo.minAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --min-amount %q", fo.minAmount)
		}
		q.MinAmount(a)
	}

	if flags.Changed("max-amount") {
		a, err := decimal.NewFromString(fo.maxAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --max-amount %q", fo.maxAmount)
		}
		q.MaxAmount(a)
	}

	if flags.Changed("start-date") {
		d, err := time.Parse(flagDateLayout, fo.startDate)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --start-date %q", fo.startDate)
		}
		q.StartDate(d)
	}

	if flags.Changed("end-date") {
		d, err := time.Parse(flagDateLayout, fo.endDate)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --end-date %q", fo.endDate)
		}
		q.EndDate(d)
	}

	return q, nil
}

func NewFilterCommand(opts *RootOptions) *cobra.Command {
	fo := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print records matching every given criterion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := fo.query(cmd)
			if err != nil {
				return err
			}

			return opts.withDB(cmd, func(db *salesdb.DB) error {
				return printRecords(cmd.OutOrStdout(), opts.Format, db.Filter(q))
			})
		},
	}

	fo.bind(cmd)

	return cmd
}

func NewExportCommand(opts *RootOptions) *cobra.Command {
	fo := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write matching records as quoted CSV to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := fo.query(cmd)
			if err != nil {
				return err
			}

			return opts.withDB(cmd, func(db *salesdb.DB) error {
				return db.ExportCSV(cmd.OutOrStdout(), q)
			})
		},
	}

	fo.bind(cmd)

	return cmd
}

type statsView struct {
	Records    int    `json:"records"`
	NextIndex  int    `json:"next_index"`
	FileSize   int64  `json:"file_size"`
	Checksum   string `json:"checksum"`
	Accepted   int    `json:"loaded"`
	Malformed  int    `json:"skipped_malformed"`
	Duplicates int    `json:"skipped_duplicates"`
	Conflicts  int    `json:"skipped_conflicts"`
}

func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics and the load report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDB(cmd, func(db *salesdb.DB) error {
				s := db.Stats()
				rep := db.LoadReport()
				v := statsView{
					Records:    s.Records,
					NextIndex:  s.NextIndex,
					FileSize:   s.FileSize,
					Checksum:   fmt.Sprintf("%016x", s.Checksum),
					Accepted:   rep.Accepted,
					Malformed:  rep.Malformed,
					Duplicates: rep.Duplicates,
					Conflicts:  rep.Conflicts,
				}

				if opts.Format == "json" {
					return printJSON(cmd.OutOrStdout(), v)
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(),
					"records: %d\nnext index: %d\nfile size: %d\nchecksum: %s\nloaded: %d\nskipped malformed: %d\nskipped duplicates: %d\nskipped conflicts: %d\n",
					v.Records, v.NextIndex, v.FileSize, v.Checksum, v.Accepted, v.Malformed, v.Duplicates, v.Conflicts,
				)
				return err
			})
		},
	}
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, errors.Errorf("invalid index %q: must be a non-negative integer", s)
	}
	return index, nil
}
