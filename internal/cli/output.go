package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/denismitr/salesdb"
)

// printRecords writes records as backing-file lines or as a JSON array.
func printRecords(w io.Writer, format string, records []salesdb.Record) error {
	if format == "json" {
		return printJSON(w, records)
	}

	for _, r := range records {
		if _, err := fmt.Fprintln(w, salesdb.EncodeRecord(r)); err != nil {
			return err
		}
	}

	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
