package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/denismitr/salesdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lineA = "1,171-1,04/30/22,Shipped,Amazon,Amazon.in,Set,S,50,Austin,TX"
	lineB = "2,171-2,04/30/22,Cancelled,Merchant,Amazon.in,kurta,XL,120,Austin,TX"
	lineC = "3,171-3,05/01/22,Shipped,Merchant,Non-Amazon,Set,M,80,Dallas,TX"
)

func writeSalesFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sales.csv")
	content := salesdb.DefaultHeader + "\n" + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	path := writeSalesFile(t, lineA, lineB, lineC)

	out, err := run(t, "--file", path, "list")
	require.NoError(t, err)
	assert.Equal(t, lineA+"\n"+lineB+"\n"+lineC+"\n", out)
}

func TestList_JSON(t *testing.T) {
	path := writeSalesFile(t, lineA)

	out, err := run(t, "--file", path, "--format", "json", "list")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "171-1", records[0]["orderId"])
	assert.Equal(t, "2022-04-30", records[0]["date"])
}

func TestGet(t *testing.T) {
	path := writeSalesFile(t, lineA, lineB)

	out, err := run(t, "--file", path, "get", "2")
	require.NoError(t, err)
	assert.Equal(t, lineB+"\n", out)

	_, err = run(t, "--file", path, "get", "9")
	assert.ErrorIs(t, err, salesdb.ErrRecordNotFound)

	_, err = run(t, "--file", path, "get", "-1")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	path := writeSalesFile(t, lineA, lineB, lineC)

	out, err := run(t, "--file", path, "filter",
		"--status", "shipped", "--min-amount", "10", "--max-amount", "100")
	require.NoError(t, err)
	assert.Equal(t, lineA+"\n"+lineC+"\n", out)

	out, err = run(t, "--file", path, "filter", "--start-date", "2022-05-01")
	require.NoError(t, err)
	assert.Equal(t, lineC+"\n", out)

	_, err = run(t, "--file", path, "filter", "--min-amount", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --min-amount "lots"`)

	_, err = run(t, "--file", path, "filter", "--end-date", "05/01/22")
	assert.Error(t, err)
}

func TestInsertUpdateDelete(t *testing.T) {
	path := writeSalesFile(t, lineA)

	out, err := run(t, "--file", path, "insert", "--json",
		`{"orderId":"171-9","date":"2022-06-01","status":"Pending","fulfilment":"Amazon","channel":"Amazon.in","category":"Top","size":"L","amount":"12.50","shipCity":"Pune","shipState":"MH"}`)
	require.NoError(t, err)
	assert.Equal(t, "2,171-9,06/01/22,Pending,Amazon,Amazon.in,Top,L,12.5,Pune,MH\n", out)

	_, err = run(t, "--file", path, "insert", "--line", lineA)
	assert.ErrorIs(t, err, salesdb.ErrDuplicate)

	_, err = run(t, "--file", path, "update", "--line",
		"2,171-9,06/01/22,Shipped,Amazon,Amazon.in,Top,L,12.5,Pune,MH")
	require.NoError(t, err)

	out, err = run(t, "--file", path, "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1\n", out)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		salesdb.DefaultHeader+"\n2,171-9,06/01/22,Shipped,Amazon,Amazon.in,Top,L,12.5,Pune,MH\n",
		string(b))
}

func TestInsert_RequiresInput(t *testing.T) {
	path := writeSalesFile(t)

	_, err := run(t, "--file", path, "insert")
	assert.Error(t, err)

	_, err = run(t, "--file", path, "insert", "--line", "1,2,3")
	assert.ErrorIs(t, err, salesdb.ErrParse)
}

func TestExport(t *testing.T) {
	path := writeSalesFile(t, lineA, lineB)

	out, err := run(t, "--file", path, "export", "--city", "austin", "--status", "Cancelled")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "index,order_id,date"))
	assert.Contains(t, lines[1], "171-2")
}

func TestStats(t *testing.T) {
	path := writeSalesFile(t, lineA, "garbage", lineB)

	out, err := run(t, "--file", path, "--format", "json", "stats")
	require.NoError(t, err)

	var v statsView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 2, v.Records)
	assert.Equal(t, 3, v.NextIndex)
	assert.Equal(t, 2, v.Accepted)
	assert.Equal(t, 1, v.Malformed)
	assert.Len(t, v.Checksum, 16)
}

func TestConfigFile(t *testing.T) {
	path := writeSalesFile(t, lineA)
	cfgPath := filepath.Join(t.TempDir(), "salesdb.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("file: "+path+"\npersistence: nosync\nlog_level: error\n"), 0644))

	out, err := run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.Equal(t, lineA+"\n", out)
}

func TestRootValidation(t *testing.T) {
	_, err := run(t, "list")
	assert.Error(t, err, "no backing file")

	path := writeSalesFile(t)
	_, err = run(t, "--file", path, "--format", "xml", "list")
	assert.Error(t, err)

	_, err = run(t, "--file", path, "--log-level", "chatty", "list")
	assert.Error(t, err)
}
