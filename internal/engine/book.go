package engine

import (
	"errors"

	"vidar/internal/common"
)

var ErrOrderNotFound = errors.New("order not found")

// Book is a single-symbol limit order book under price-time priority. All
// methods are synchronous and must be driven by a single writer; the engine
// serializes callers on its behalf.
type Book interface {
	// MatchOrder crosses an incoming limit order against resting liquidity
	// and rests any residual. It returns the number of distinct resting
	// orders that received a nonzero fill. The caller must not submit an id
	// that is currently resting.
	MatchOrder(incoming common.Order) uint32

	// ModifyOrderByID sets the remaining quantity of a resting order. A zero
	// quantity cancels it. Unknown ids are a silent no-op, so cancels racing
	// against fills are benign.
	ModifyOrderByID(id common.OrderID, newQuantity common.Quantity)

	// VolumeAtLevel reports the aggregate resting quantity at a price level,
	// or 0 if the level is empty.
	VolumeAtLevel(side common.Side, price common.Price) uint32

	// LookupOrderByID returns a copy of a resting order, or ErrOrderNotFound.
	LookupOrderByID(id common.OrderID) (common.Order, error)

	// OrderExists reports whether id is currently resting. Total, never fails.
	OrderExists(id common.OrderID) bool

	// Executions returns the match events recorded by the most recent
	// MatchOrder call. The slice is reused across calls; callers must not
	// retain it.
	Executions() []common.Execution

	// BestBid and BestAsk report the current top of book.
	BestBid() (common.Price, bool)
	BestAsk() (common.Price, bool)

	// RestingOrders reports the number of live resting orders.
	RestingOrders() int
}
