package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstreamio/quotestream/internal/errs"
	"github.com/mstreamio/quotestream/internal/protocol"
)

func TestParseStreamValid(t *testing.T) {
	req, err := protocol.ParseStream("STREAM udp://127.0.0.1:9000 aapl,AAPL, tsla")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", req.UDPAddr.IP.String())
	assert.Equal(t, 9000, req.UDPAddr.Port)
	assert.Len(t, req.Tickers, 2, "aapl and AAPL normalize to the same key")
	_, hasAAPL := req.Tickers["AAPL"]
	_, hasTSLA := req.Tickers["TSLA"]
	assert.True(t, hasAAPL)
	assert.True(t, hasTSLA)
}

func TestParseStreamRejectsMissingPrefix(t *testing.T) {
	_, err := protocol.ParseStream("STREAM 127.0.0.1:9000 AAPL")
	assert.ErrorIs(t, err, errs.ErrInvalidCommand)
}

func TestParseStreamRejectsEmptyTickerList(t *testing.T) {
	_, err := protocol.ParseStream("STREAM udp://127.0.0.1:9000 ,,")
	assert.Error(t, err)
}

func TestParseStreamRejectsMalformedAddress(t *testing.T) {
	_, err := protocol.ParseStream("STREAM udp://not-an-address AAPL")
	assert.Error(t, err)
}

func TestParseStreamRejectsWrongCommand(t *testing.T) {
	_, err := protocol.ParseStream("SUBSCRIBE udp://127.0.0.1:9000 AAPL")
	assert.Error(t, err)
}

func TestParseStreamRejectsInvalidTickerSymbol(t *testing.T) {
	_, err := protocol.ParseStream("STREAM udp://127.0.0.1:9000 AA.PL")
	assert.Error(t, err)
}

func TestParseReply(t *testing.T) {
	assert.NoError(t, protocol.ParseReply("OK"))
	assert.NoError(t, protocol.ParseReply("OK\n"))

	err := protocol.ParseReply("ERR ticker list is empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticker list is empty")

	err = protocol.ParseReply("garbage")
	assert.Error(t, err)
}

func TestFormatStreamRoundTrips(t *testing.T) {
	line := protocol.FormatStream("127.0.0.1:9000", []string{"AAPL", "TSLA"})
	req, err := protocol.ParseStream(line[:len(line)-1])
	require.NoError(t, err)
	assert.Equal(t, 9000, req.UDPAddr.Port)
	assert.Len(t, req.Tickers, 2)
}
