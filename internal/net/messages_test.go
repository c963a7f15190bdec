package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
)

func roundTrip(t *testing.T, serialize func() ([]byte, error)) Message {
	t.Helper()
	wire, err := serialize()
	require.NoError(t, err)
	message, err := ParseMessage(wire)
	require.NoError(t, err)
	return message
}

func TestParseMessage_NewOrder(t *testing.T) {
	sent := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Ticker:      "AAPL",
		ID:          42,
		Price:       512,
		Quantity:    100,
		Side:        common.Sell,
	}

	received := roundTrip(t, sent.Serialize)
	require.Equal(t, NewOrder, received.GetType())
	assert.Equal(t, sent, received)

	order := received.(NewOrderMessage).Order()
	assert.Equal(t, common.Order{ID: 42, Price: 512, Quantity: 100, Side: common.Sell}, order)
}

func TestParseMessage_ShortTickerPads(t *testing.T) {
	sent := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Ticker:      "GE",
		ID:          1,
		Price:       10,
		Quantity:    1,
		Side:        common.Buy,
	}

	received := roundTrip(t, sent.Serialize).(NewOrderMessage)
	assert.Equal(t, "GE", received.Ticker)
}

func TestParseMessage_ModifyOrder(t *testing.T) {
	sent := ModifyOrderMessage{
		BaseMessage: BaseMessage{TypeOf: ModifyOrder},
		Ticker:      "AAPL",
		ID:          7,
		NewQuantity: 25,
	}

	assert.Equal(t, sent, roundTrip(t, sent.Serialize))
}

func TestParseMessage_CancelOrder(t *testing.T) {
	sent := CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Ticker:      "AAPL",
		ID:          7,
	}

	assert.Equal(t, sent, roundTrip(t, sent.Serialize))
}

func TestParseMessage_VolumeQuery(t *testing.T) {
	sent := VolumeQueryMessage{
		BaseMessage: BaseMessage{TypeOf: VolumeQuery},
		Ticker:      "AAPL",
		Side:        common.Buy,
		Price:       1023,
	}

	assert.Equal(t, sent, roundTrip(t, sent.Serialize))
}

func TestParseMessage_BareFrames(t *testing.T) {
	heartbeat, err := ParseMessage(SerializeHeartbeat())
	require.NoError(t, err)
	assert.Equal(t, Heartbeat, heartbeat.GetType())

	logBook, err := ParseMessage(SerializeLogBook())
	require.NoError(t, err)
	assert.Equal(t, LogBook, logBook.GetType())
}

func TestParseMessage_Errors(t *testing.T) {
	_, err := ParseMessage([]byte{0x00})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = ParseMessage([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	// Valid type, truncated payload.
	wire, serr := NewOrderMessage{Ticker: "AAPL", ID: 1, Price: 1, Quantity: 1}.Serialize()
	require.NoError(t, serr)
	_, err = ParseMessage(wire[:len(wire)-2])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestSerialize_TickerTooLong(t *testing.T) {
	_, err := NewOrderMessage{Ticker: "TOOLONG"}.Serialize()
	assert.ErrorIs(t, err, ErrTickerTooLong)
}

func TestReport_RoundTrip(t *testing.T) {
	reports := []Report{
		orderAckReport("AAPL", 9, 3),
		executionReport("AAPL", common.Execution{
			TakerID:  9,
			MakerID:  4,
			Price:    512,
			Quantity: 10,
			Side:     common.Buy,
		}),
		volumeReport("AAPL", common.Sell, 512, 12345),
		errorReport(ErrInvalidMessageType),
	}

	for _, sent := range reports {
		wire, err := sent.Serialize()
		require.NoError(t, err)
		received, err := ParseReport(wire)
		require.NoError(t, err)
		assert.Equal(t, sent, received)
	}
}

func TestParseReport_Truncated(t *testing.T) {
	wire, err := orderAckReport("AAPL", 9, 3).Serialize()
	require.NoError(t, err)
	_, err = ParseReport(wire[:10])
	assert.ErrorIs(t, err, ErrMessageTooShort)

	// Error payload shorter than its declared length.
	wire, err = errorReport(ErrInvalidMessageType).Serialize()
	require.NoError(t, err)
	_, err = ParseReport(wire[:len(wire)-1])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}
