package salesdb_test

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/denismitr/salesdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var statuses = []string{"Shipped", "Cancelled", "Pending", "Shipped - Delivered to Buyer"}
var cities = []string{"MUMBAI", "BENGALURU", "HYDERABAD", "PUNE", "CHENNAI"}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// writeSalesFile creates a backing file with the default header and lines.
func writeSalesFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sales.csv")
	content := salesdb.DefaultHeader + "\n" + strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openDB(t *testing.T, path string) *salesdb.DB {
	t.Helper()

	db, closer, err := salesdb.Open(path, &salesdb.Config{DisableMemoryCheck: true})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = closer()
	})

	return db
}

func randomRecord(rnd *rand.Rand, n int) salesdb.Record {
	return salesdb.Record{
		OrderID:    fmt.Sprintf("%03d-%07d-%07d", rnd.Intn(1000), rnd.Intn(10000000), n),
		Date:       day(2022, time.Month(4+rnd.Intn(3)), 1+rnd.Intn(28)),
		Status:     statuses[rnd.Intn(len(statuses))],
		Fulfilment: "Amazon",
		Channel:    "Amazon.in",
		Category:   "Set",
		Size:       "M",
		Amount:     decimal.New(int64(rnd.Intn(100000)), -2),
		ShipCity:   cities[rnd.Intn(len(cities))],
		ShipState:  "MAHARASHTRA",
	}
}
