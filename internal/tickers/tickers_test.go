package tickers_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstreamio/quotestream/internal/tickers"
)

func TestParseReaderNormalizesAndSkipsBlankLines(t *testing.T) {
	in := "aapl\n\nAAPL\n  tsla  \n\n"
	out, err := tickers.ParseReader(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "AAPL", "TSLA"}, out, "duplicates survive in file order")
}

func TestParseReaderEmptyInput(t *testing.T) {
	out, err := tickers.ParseReader(strings.NewReader("\n\n  \n"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := tickers.LoadFile("/nonexistent/path/tickers.txt")
	assert.Error(t, err)
}

func TestLoadFileEmptyIsConfigError(t *testing.T) {
	f := t.TempDir() + "/empty.txt"
	require.NoError(t, os.WriteFile(f, []byte("\n\n"), 0o644))

	_, err := tickers.LoadFile(f)
	assert.Error(t, err)
}

func TestLoadFileValid(t *testing.T) {
	f := t.TempDir() + "/tickers.txt"
	require.NoError(t, os.WriteFile(f, []byte("aapl\nAAPL\ngoog\n"), 0o644))

	out, err := tickers.LoadFile(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "AAPL", "GOOG"}, out)
}
