package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
)

type captureReporter struct {
	tickers []string
	execs   [][]common.Execution
}

func (r *captureReporter) ReportExecutions(ticker string, execs []common.Execution) error {
	r.tickers = append(r.tickers, ticker)
	r.execs = append(r.execs, append([]common.Execution(nil), execs...))
	return nil
}

func newTestEngine(tickers ...string) *Engine {
	return New(func() Book { return NewOrderbook() }, tickers...)
}

func TestEngine_RoutesByTicker(t *testing.T) {
	eng := newTestEngine("AAPL", "MSFT")

	_, err := eng.PlaceOrder("AAPL", buy(1, 100, 10))
	require.NoError(t, err)

	// Same id on another ticker is an independent book.
	_, err = eng.PlaceOrder("MSFT", sell(1, 100, 7))
	require.NoError(t, err)

	volume, err := eng.VolumeAtLevel("AAPL", common.Buy, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 10, volume)

	volume, err = eng.VolumeAtLevel("MSFT", common.Sell, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 7, volume)
}

func TestEngine_UnknownTicker(t *testing.T) {
	eng := newTestEngine("AAPL")

	_, err := eng.PlaceOrder("GOOG", buy(1, 100, 10))
	assert.ErrorIs(t, err, ErrUnknownTicker)
	assert.ErrorIs(t, eng.ModifyOrder("GOOG", 1, 5), ErrUnknownTicker)
	_, err = eng.VolumeAtLevel("GOOG", common.Buy, 100)
	assert.ErrorIs(t, err, ErrUnknownTicker)
	_, err = eng.LookupOrder("GOOG", 1)
	assert.ErrorIs(t, err, ErrUnknownTicker)
	_, err = eng.OrderExists("GOOG", 1)
	assert.ErrorIs(t, err, ErrUnknownTicker)
}

func TestEngine_ReportsExecutions(t *testing.T) {
	eng := newTestEngine("AAPL")
	reporter := &captureReporter{}
	eng.SetReporter(reporter)

	_, err := eng.PlaceOrder("AAPL", sell(1, 100, 5))
	require.NoError(t, err)
	// No fills, no report.
	assert.Empty(t, reporter.execs)

	matches, err := eng.PlaceOrder("AAPL", buy(2, 100, 3))
	require.NoError(t, err)
	assert.EqualValues(t, 1, matches)

	require.Len(t, reporter.execs, 1)
	assert.Equal(t, []string{"AAPL"}, reporter.tickers)
	assert.Equal(t, []common.Execution{{
		TakerID:  2,
		MakerID:  1,
		Price:    100,
		Quantity: 3,
		Side:     common.Buy,
	}}, reporter.execs[0])
}

func TestEngine_CancelOrder(t *testing.T) {
	eng := newTestEngine("AAPL")

	_, err := eng.PlaceOrder("AAPL", buy(1, 100, 10))
	require.NoError(t, err)
	require.NoError(t, eng.CancelOrder("AAPL", 1))

	exists, err := eng.OrderExists("AAPL", 1)
	require.NoError(t, err)
	assert.False(t, exists)

	// Cancel of an already-dead id stays silent.
	assert.NoError(t, eng.CancelOrder("AAPL", 1))
}

func TestEngine_LookupOrder(t *testing.T) {
	eng := newTestEngine("AAPL")

	_, err := eng.PlaceOrder("AAPL", buy(7, 101, 4))
	require.NoError(t, err)

	order, err := eng.LookupOrder("AAPL", 7)
	require.NoError(t, err)
	assert.Equal(t, buy(7, 101, 4), order)

	_, err = eng.LookupOrder("AAPL", 8)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
