package leadfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

// collect drains both channels of a Stream* reader.
func collect(recCh <-chan Record, errCh <-chan error) ([]Record, error) {
	var recs []Record
	for rec := range recCh {
		recs = append(recs, rec)
	}
	for err := range errCh {
		if err != nil {
			return recs, err
		}
	}
	return recs, nil
}

func TestHeaderKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"email", "email"},
		{"First Name", "first_name"},
		{"  Company-Size ", "company_size"},
		{"\ufeffEmail", "email"},
		{"full__name", "full_name"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HeaderKey(tt.in), tt.in)
	}
}

func TestStreamCSV_Payloads(t *testing.T) {
	input := "Email,Company,Full Name,Title\n" +
		"jane@acme.com,Acme,Jane Doe,VP Sales\n" +
		",,,\n" +
		"bob@beta.io, Beta ,Bob,\n"
	recs, err := collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{}))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 2, recs[0].Line)
	assert.Equal(t, map[string]any{
		"email": "jane@acme.com", "company": "Acme", "full_name": "Jane Doe", "title": "VP Sales",
	}, recs[0].Payload)

	assert.Equal(t, 4, recs[1].Line)
	assert.Equal(t, "Beta", recs[1].Payload["company"])
	assert.NotContains(t, recs[1].Payload, "title")
}

func TestStreamCSV_RaggedRows(t *testing.T) {
	input := "email,company\njane@acme.com\nbob@beta.io,Beta,extra\n"
	recs, err := collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{}))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, map[string]any{"email": "jane@acme.com"}, recs[0].Payload)
	assert.Equal(t, map[string]any{"email": "bob@beta.io", "company": "Beta"}, recs[1].Payload)
}

func TestStreamCSV_Empty(t *testing.T) {
	_, err := collect(StreamCSV(context.Background(), strings.NewReader(""), CSVOptions{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header row")
}

func TestStreamCSV_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collect(StreamCSV(ctx, strings.NewReader("email\na@b.com\n"), CSVOptions{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestStreamXLSX_Payloads(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Leads": {
			{"Email", "Company", "Country"},
			{"jane@acme.com", "Acme", "US"},
			{"", "", ""},
			{"bob@beta.io", "Beta", ""},
		},
	})

	recs, err := collect(StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Leads"}))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Line)
	assert.Equal(t, "US", recs[0].Payload["country"])
	assert.Equal(t, 4, recs[1].Line)
	assert.Equal(t, map[string]any{"email": "bob@beta.io", "company": "Beta"}, recs[1].Payload)
}

func TestStreamXLSX_SheetErrors(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"email"}}})

	_, err := collect(StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Missing"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = collect(StreamXLSX(context.Background(), path, XLSXOptions{SheetIndex: 3}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestStreamJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "array", input: `[{"email":"a@b.com"},{},{"email":"c@d.com","properties":{"company":{"value":"Acme"}}}]`, want: 2},
		{name: "lines", input: "{\"email\":\"a@b.com\"}\n{\"email\":\"c@d.com\"}\n", want: 2},
		{name: "padded array", input: "\n  [ {\"email\":\"a@b.com\"} ]\n", want: 1},
		{name: "empty", input: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := collect(StreamJSON(context.Background(), strings.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Len(t, recs, tt.want)
		})
	}
}

func TestStreamJSON_KeepsNestedPayload(t *testing.T) {
	recs, err := collect(StreamJSON(context.Background(), strings.NewReader(
		`[{"event_id":"e1","properties":{"email":{"value":"A@B.com"}}}]`,
	)))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	props, ok := recs[0].Payload["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"value": "A@B.com"}, props["email"])
}

func TestStreamJSON_Malformed(t *testing.T) {
	_, err := collect(StreamJSON(context.Background(), strings.NewReader(`[{"email":`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record 1")
}

func TestRead_DispatchAndLimit(t *testing.T) {
	csvPath := writeTestFile(t, "leads.csv", "email\na@b.com\nc@d.com\ne@f.com\n")
	recs, err := Read(context.Background(), csvPath, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = Read(context.Background(), csvPath, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c@d.com", recs[1].Payload["email"])

	tsvPath := writeTestFile(t, "leads.tsv", "email\tcompany\na@b.com\tAcme\n")
	recs, err = Read(context.Background(), tsvPath, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Acme", recs[0].Payload["company"])

	jsonlPath := writeTestFile(t, "leads.jsonl", "{\"email\":\"a@b.com\"}\n")
	recs, err = Read(context.Background(), jsonlPath, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	xlsxPath := createTestXLSX(t, map[string][][]string{"Sheet1": {{"email"}, {"a@b.com"}}})
	recs, err = Read(context.Background(), xlsxPath, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(context.Background(), writeTestFile(t, "leads.txt", "x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = Read(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leadfile: open")
}
