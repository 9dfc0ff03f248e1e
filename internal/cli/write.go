package cli

import (
	"fmt"

	"github.com/denismitr/salesdb"
	"github.com/spf13/cobra"
)

type recordInput struct {
	json string
	line string
}

func (ri *recordInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ri.json, "json", "", "record as a JSON object, dates as yyyy-mm-dd")
	cmd.Flags().StringVar(&ri.line, "line", "", "record as a backing-file line")
	cmd.MarkFlagsMutuallyExclusive("json", "line")
	cmd.MarkFlagsOneRequired("json", "line")
}

func (ri *recordInput) record() (salesdb.Record, error) {
	if ri.line != "" {
		return salesdb.DecodeLine(ri.line)
	}
	return salesdb.RecordFromJSON([]byte(ri.json))
}

func NewInsertCommand(opts *RootOptions) *cobra.Command {
	ri := &recordInput{}

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Append a new record; index 0 assigns the next free index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ri.record()
			if err != nil {
				return err
			}

			return opts.withDB(cmd, func(db *salesdb.DB) error {
				stored, err := db.Insert(r)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts.Format, []salesdb.Record{stored})
			})
		},
	}

	ri.bind(cmd)

	return cmd
}

func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	ri := &recordInput{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the record whose index matches the given one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ri.record()
			if err != nil {
				return err
			}

			return opts.withDB(cmd, func(db *salesdb.DB) error {
				if err := db.Update(r); err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts.Format, []salesdb.Record{r})
			})
		},
	}

	ri.bind(cmd)

	return cmd
}

func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Remove the record with the given index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			return opts.withDB(cmd, func(db *salesdb.DB) error {
				if err := db.Delete(index); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", index)
				return err
			})
		},
	}
}
