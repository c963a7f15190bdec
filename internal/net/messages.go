package net

import (
	"bytes"
	"encoding/binary"
	"errors"

	"vidar/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrTickerTooLong      = errors.New("ticker longer than four characters")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	ModifyOrder
	CancelOrder
	VolumeQuery
	LogBook
)

type ReportType uint8

const (
	OrderAck ReportType = iota
	ExecutionReport
	VolumeReport
	ErrorReport
)

// Message format constants. Payload lengths exclude the two-byte message
// type header.
const (
	BaseMessageHeaderLen  = 2
	tickerLen             = 4
	NewOrderPayloadLen    = tickerLen + 4 + 2 + 2 + 1
	ModifyOrderPayloadLen = tickerLen + 4 + 2
	CancelOrderPayloadLen = tickerLen + 4
	VolumeQueryPayloadLen = tickerLen + 1 + 2
)

type Message interface {
	GetType() MessageType
}

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

// packTicker pads a ticker out to its fixed wire width with NULs.
func packTicker(dst []byte, ticker string) error {
	if len(ticker) > tickerLen {
		return ErrTickerTooLong
	}
	copy(dst[:tickerLen], ticker)
	return nil
}

func unpackTicker(src []byte) string {
	return string(bytes.TrimRight(src[:tickerLen], "\x00"))
}

// ParseMessage decodes one request frame received from a client.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat, LogBook:
		return BaseMessage{TypeOf: typeOf}, nil
	case NewOrder:
		return parseNewOrder(msg)
	case ModifyOrder:
		return parseModifyOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case VolumeQuery:
		return parseVolumeQuery(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	Ticker   string          // 4 bytes
	ID       common.OrderID  // 4 bytes
	Price    common.Price    // 2 bytes
	Quantity common.Quantity // 2 bytes
	Side     common.Side     // 1 byte
}

func (m NewOrderMessage) Order() common.Order {
	return common.Order{
		ID:       m.ID,
		Price:    m.Price,
		Quantity: m.Quantity,
		Side:     m.Side,
	}
}

func (m NewOrderMessage) Serialize() ([]byte, error) {
	buf := make([]byte, BaseMessageHeaderLen+NewOrderPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	if err := packTicker(buf[2:6], m.Ticker); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(buf[6:10], uint32(m.ID))
	binary.BigEndian.PutUint16(buf[10:12], uint16(m.Price))
	binary.BigEndian.PutUint16(buf[12:14], uint16(m.Quantity))
	buf[14] = byte(m.Side)
	return buf, nil
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderPayloadLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Ticker:      unpackTicker(msg[0:4]),
		ID:          common.OrderID(binary.BigEndian.Uint32(msg[4:8])),
		Price:       common.Price(binary.BigEndian.Uint16(msg[8:10])),
		Quantity:    common.Quantity(binary.BigEndian.Uint16(msg[10:12])),
		Side:        common.Side(msg[12]),
	}, nil
}

type ModifyOrderMessage struct {
	BaseMessage
	Ticker      string          // 4 bytes
	ID          common.OrderID  // 4 bytes
	NewQuantity common.Quantity // 2 bytes; zero cancels
}

func (m ModifyOrderMessage) Serialize() ([]byte, error) {
	buf := make([]byte, BaseMessageHeaderLen+ModifyOrderPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(ModifyOrder))
	if err := packTicker(buf[2:6], m.Ticker); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(buf[6:10], uint32(m.ID))
	binary.BigEndian.PutUint16(buf[10:12], uint16(m.NewQuantity))
	return buf, nil
}

func parseModifyOrder(msg []byte) (ModifyOrderMessage, error) {
	if len(msg) < ModifyOrderPayloadLen {
		return ModifyOrderMessage{}, ErrMessageTooShort
	}
	return ModifyOrderMessage{
		BaseMessage: BaseMessage{TypeOf: ModifyOrder},
		Ticker:      unpackTicker(msg[0:4]),
		ID:          common.OrderID(binary.BigEndian.Uint32(msg[4:8])),
		NewQuantity: common.Quantity(binary.BigEndian.Uint16(msg[8:10])),
	}, nil
}

type CancelOrderMessage struct {
	BaseMessage
	Ticker string         // 4 bytes
	ID     common.OrderID // 4 bytes
}

func (m CancelOrderMessage) Serialize() ([]byte, error) {
	buf := make([]byte, BaseMessageHeaderLen+CancelOrderPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	if err := packTicker(buf[2:6], m.Ticker); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(buf[6:10], uint32(m.ID))
	return buf, nil
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderPayloadLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Ticker:      unpackTicker(msg[0:4]),
		ID:          common.OrderID(binary.BigEndian.Uint32(msg[4:8])),
	}, nil
}

type VolumeQueryMessage struct {
	BaseMessage
	Ticker string       // 4 bytes
	Side   common.Side  // 1 byte
	Price  common.Price // 2 bytes
}

func (m VolumeQueryMessage) Serialize() ([]byte, error) {
	buf := make([]byte, BaseMessageHeaderLen+VolumeQueryPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(VolumeQuery))
	if err := packTicker(buf[2:6], m.Ticker); err != nil {
		return nil, err
	}
	buf[6] = byte(m.Side)
	binary.BigEndian.PutUint16(buf[7:9], uint16(m.Price))
	return buf, nil
}

func parseVolumeQuery(msg []byte) (VolumeQueryMessage, error) {
	if len(msg) < VolumeQueryPayloadLen {
		return VolumeQueryMessage{}, ErrMessageTooShort
	}
	return VolumeQueryMessage{
		BaseMessage: BaseMessage{TypeOf: VolumeQuery},
		Ticker:      unpackTicker(msg[0:4]),
		Side:        common.Side(msg[4]),
		Price:       common.Price(binary.BigEndian.Uint16(msg[5:7])),
	}, nil
}

// SerializeHeartbeat and SerializeLogBook build the two body-less frames.
func SerializeHeartbeat() []byte { return serializeBare(Heartbeat) }

func SerializeLogBook() []byte { return serializeBare(LogBook) }

func serializeBare(typeOf MessageType) []byte {
	buf := make([]byte, BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf, uint16(typeOf))
	return buf
}

// Report is the server-to-client frame. One struct covers all report kinds;
// fields a kind does not use stay zero on the wire.
type Report struct {
	TypeOf     ReportType      // 1 byte
	Ticker     string          // 4 bytes
	TakerID    common.OrderID  // 4 bytes; also carries the acked order id
	MakerID    common.OrderID  // 4 bytes
	Side       common.Side     // 1 byte
	Price      common.Price    // 2 bytes
	Quantity   common.Quantity // 2 bytes
	MatchCount uint32          // 4 bytes
	Volume     uint32          // 4 bytes
	ErrLen     uint32          // 4 bytes
	Err        string          // n bytes
}

const ReportFixedHeaderLen = 1 + tickerLen + 4 + 4 + 1 + 2 + 2 + 4 + 4 + 4

// Serialize converts the report to be sent on the wire.
func (r Report) Serialize() ([]byte, error) {
	buf := make([]byte, ReportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.TypeOf)
	if err := packTicker(buf[1:5], r.Ticker); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(buf[5:9], uint32(r.TakerID))
	binary.BigEndian.PutUint32(buf[9:13], uint32(r.MakerID))
	buf[13] = byte(r.Side)
	binary.BigEndian.PutUint16(buf[14:16], uint16(r.Price))
	binary.BigEndian.PutUint16(buf[16:18], uint16(r.Quantity))
	binary.BigEndian.PutUint32(buf[18:22], r.MatchCount)
	binary.BigEndian.PutUint32(buf[22:26], r.Volume)
	binary.BigEndian.PutUint32(buf[26:30], uint32(len(r.Err)))
	copy(buf[ReportFixedHeaderLen:], r.Err)
	return buf, nil
}

// ParseReport decodes one report frame. Used by the client side.
func ParseReport(msg []byte) (Report, error) {
	if len(msg) < ReportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		TypeOf:     ReportType(msg[0]),
		Ticker:     unpackTicker(msg[1:5]),
		TakerID:    common.OrderID(binary.BigEndian.Uint32(msg[5:9])),
		MakerID:    common.OrderID(binary.BigEndian.Uint32(msg[9:13])),
		Side:       common.Side(msg[13]),
		Price:      common.Price(binary.BigEndian.Uint16(msg[14:16])),
		Quantity:   common.Quantity(binary.BigEndian.Uint16(msg[16:18])),
		MatchCount: binary.BigEndian.Uint32(msg[18:22]),
		Volume:     binary.BigEndian.Uint32(msg[22:26]),
		ErrLen:     binary.BigEndian.Uint32(msg[26:30]),
	}
	if r.ErrLen > 0 {
		if len(msg) < ReportFixedHeaderLen+int(r.ErrLen) {
			return Report{}, ErrMessageTooShort
		}
		r.Err = string(msg[ReportFixedHeaderLen : ReportFixedHeaderLen+int(r.ErrLen)])
	}
	return r, nil
}

func executionReport(ticker string, exec common.Execution) Report {
	return Report{
		TypeOf:   ExecutionReport,
		Ticker:   ticker,
		TakerID:  exec.TakerID,
		MakerID:  exec.MakerID,
		Side:     exec.Side,
		Price:    exec.Price,
		Quantity: exec.Quantity,
	}
}

func orderAckReport(ticker string, id common.OrderID, matchCount uint32) Report {
	return Report{
		TypeOf:     OrderAck,
		Ticker:     ticker,
		TakerID:    id,
		MatchCount: matchCount,
	}
}

func volumeReport(ticker string, side common.Side, price common.Price, volume uint32) Report {
	return Report{
		TypeOf: VolumeReport,
		Ticker: ticker,
		Side:   side,
		Price:  price,
		Volume: volume,
	}
}

func errorReport(err error) Report {
	errStr := err.Error()
	return Report{
		TypeOf: ErrorReport,
		ErrLen: uint32(len(errStr)),
		Err:    errStr,
	}
}
