package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apicrafter/metacrafter-go/pkg/connectors/file"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func drain(t *testing.T, src file.Source) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		rec, ok, err := src.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out
}

func TestCSVSource_ReadsRowsByHeader(t *testing.T) {
	path := writeTemp(t, "data.csv", "name,age\nalice,30\nbob,25\n")
	src, err := file.NewCSVSource(path, ',')
	require.NoError(t, err)
	defer src.Close()

	records := drain(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, "alice", records[0]["name"])
	assert.Equal(t, "30", records[0]["age"])
}

func TestJSONLSource_ParsesOneObjectPerLine(t *testing.T) {
	path := writeTemp(t, "data.jsonl", `{"name":"alice","age":30}
{"name":"bob","age":25}
`)
	src, err := file.NewJSONLSource(path)
	require.NoError(t, err)
	defer src.Close()

	records := drain(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, "alice", records[0]["name"])
}

func TestJSONLSource_SkipsBlankLines(t *testing.T) {
	path := writeTemp(t, "data.jsonl", "\n{\"a\":1}\n\n")
	src, err := file.NewJSONLSource(path)
	require.NoError(t, err)
	defer src.Close()

	records := drain(t, src)
	require.Len(t, records, 1)
}

func TestOpen_DispatchesByExtension(t *testing.T) {
	path := writeTemp(t, "data.csv", "a,b\n1,2\n")
	src, err := file.Open(path)
	require.NoError(t, err)
	defer src.Close()
	assert.IsType(t, &file.CSVSource{}, src)
}

func TestOpen_UnsupportedExtensionErrors(t *testing.T) {
	path := writeTemp(t, "data.txt", "x")
	_, err := file.Open(path)
	assert.Error(t, err)
}

func TestCSVSource_RespectsCancellation(t *testing.T) {
	path := writeTemp(t, "data.csv", "a\n1\n2\n")
	src, err := file.NewCSVSource(path, ',')
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = src.Next(ctx)
	assert.Error(t, err)
}
