package common

import "fmt"

// Execution accounts for one match event between an incoming (taker) order
// and a resting (maker) order. A partial fill is still one execution.
type Execution struct {
	TakerID  OrderID
	MakerID  OrderID
	Price    Price    // Maker's price; the level the fill happened at
	Quantity Quantity // Quantity crossed in this event
	Side     Side     // Taker side
}

func (e Execution) String() string {
	return fmt.Sprintf("{taker: %d, maker: %d, side: %v, price: %d, quantity: %d}",
		e.TakerID, e.MakerID, e.Side, e.Price, e.Quantity)
}
