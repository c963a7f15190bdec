package engine

import (
	"vidar/internal/common"
)

// level is one populated (side, price) slot: a FIFO queue of order ids plus
// the cached sum of live quantity behind those ids. The queue may hold stale
// ids left behind by cancels; traversal drops them on encounter.
type level struct {
	ids    []common.OrderID
	head   int
	volume uint32
}

func (l *level) size() int { return len(l.ids) - l.head }

func (l *level) push(id common.OrderID) { l.ids = append(l.ids, id) }

func (l *level) pop() {
	l.head++
	if l.head == len(l.ids) {
		l.ids = l.ids[:0]
		l.head = 0
	}
}

// Orderbook is the dense-array book: both ladders are flat arrays indexed by
// price tick, with bidMax/askMin cursors bounding the populated range so the
// matcher never scans the whole array on the hot path. The order directory is
// a flat arena indexed by order id; a slot is live iff its quantity is
// nonzero, so a cancel is a volume adjustment and a single store.
type Orderbook struct {
	orders [common.MaxOrders]common.Order

	bids [common.PriceLevels]level
	asks [common.PriceLevels]level

	bidMax int // Upper bound on the best bid; -1 until a bid rests or once a sweep passes every level
	askMin int // Lower bound on the best ask; PriceLevels until an ask rests or once a sweep passes every level

	nResting int
	execs    []common.Execution
}

func NewOrderbook() *Orderbook {
	ob := &Orderbook{}
	ob.Reset()
	return ob
}

// Reset empties the book in place so a long-lived arena can be reused.
func (ob *Orderbook) Reset() {
	ob.orders = [common.MaxOrders]common.Order{}
	for p := range ob.bids {
		ob.bids[p] = level{}
		ob.asks[p] = level{}
	}
	ob.bidMax = -1
	ob.askMin = common.PriceLevels
	ob.nResting = 0
	ob.execs = ob.execs[:0]
}

func (ob *Orderbook) levelFor(side common.Side, price common.Price) *level {
	if side == common.Buy {
		return &ob.bids[price]
	}
	return &ob.asks[price]
}

// MatchOrder crosses the incoming order against the opposite ladder in price
// priority, then rests any residual on its own side. Returns the number of
// resting orders that received a nonzero fill.
func (ob *Orderbook) MatchOrder(incoming common.Order) uint32 {
	ob.execs = ob.execs[:0]
	w := incoming
	if w.Quantity == 0 {
		return 0
	}

	var count uint32
	if w.Side == common.Buy {
		// Sweep asks upward from the cursor while they cross.
		for w.Quantity > 0 && ob.askMin < common.PriceLevels {
			lvl := &ob.asks[ob.askMin]
			if lvl.size() == 0 {
				ob.askMin++
				continue
			}
			if common.Price(ob.askMin) > w.Price {
				break
			}
			count += ob.fill(&w, lvl, common.Price(ob.askMin), common.Sell)
		}
	} else {
		// Sweep bids downward from the cursor while they cross.
		for w.Quantity > 0 && ob.bidMax >= 0 {
			lvl := &ob.bids[ob.bidMax]
			if lvl.size() == 0 {
				ob.bidMax--
				continue
			}
			if common.Price(ob.bidMax) < w.Price {
				break
			}
			count += ob.fill(&w, lvl, common.Price(ob.bidMax), common.Buy)
		}
	}

	if w.Quantity > 0 {
		ob.rest(w)
	}
	return count
}

// fill walks one level's FIFO queue from the head, trading against live
// orders and dropping stale ids, until the working order or the level is
// exhausted.
func (ob *Orderbook) fill(w *common.Order, lvl *level, price common.Price, restingSide common.Side) uint32 {
	var count uint32
	for w.Quantity > 0 && lvl.size() > 0 {
		id := lvl.ids[lvl.head]
		r := &ob.orders[id]
		if r.Quantity == 0 || r.Price != price || r.Side != restingSide {
			// Cancelled (or reused elsewhere) since it was queued.
			lvl.pop()
			continue
		}

		trade := min(w.Quantity, r.Quantity)
		w.Quantity -= trade
		r.Quantity -= trade
		lvl.volume -= uint32(trade)
		count++
		ob.execs = append(ob.execs, common.Execution{
			TakerID:  w.ID,
			MakerID:  id,
			Price:    price,
			Quantity: trade,
			Side:     w.Side,
		})

		if r.Quantity == 0 {
			lvl.pop()
			ob.nResting--
		}
	}
	return count
}

// rest stores the residual of a matched order as resting liquidity.
func (ob *Orderbook) rest(w common.Order) {
	ob.orders[w.ID] = w
	ob.nResting++

	var lvl *level
	if w.Side == common.Buy {
		lvl = &ob.bids[w.Price]
		if int(w.Price) > ob.bidMax {
			ob.bidMax = int(w.Price)
		}
	} else {
		lvl = &ob.asks[w.Price]
		if int(w.Price) < ob.askMin {
			ob.askMin = int(w.Price)
		}
	}
	lvl.push(w.ID)
	lvl.volume += uint32(w.Quantity)
}

// ModifyOrderByID sets the remaining quantity of a resting order; zero
// cancels it. The level's cached volume is adjusted eagerly, but a cancel
// leaves the queue entry behind for the matcher to drop lazily, keeping
// cancellation O(1).
func (ob *Orderbook) ModifyOrderByID(id common.OrderID, newQuantity common.Quantity) {
	if int(id) >= common.MaxOrders {
		return
	}
	r := &ob.orders[id]
	if r.Quantity == 0 {
		return
	}

	lvl := ob.levelFor(r.Side, r.Price)
	lvl.volume += uint32(newQuantity)
	lvl.volume -= uint32(r.Quantity)
	r.Quantity = newQuantity
	if newQuantity == 0 {
		ob.nResting--
	}
}

// VolumeAtLevel returns the cached aggregate resting quantity at a level.
// Cancels adjust the cache eagerly, so this never walks the queue.
func (ob *Orderbook) VolumeAtLevel(side common.Side, price common.Price) uint32 {
	if int(price) >= common.PriceLevels {
		return 0
	}
	return ob.levelFor(side, price).volume
}

func (ob *Orderbook) LookupOrderByID(id common.OrderID) (common.Order, error) {
	if !ob.OrderExists(id) {
		return common.Order{}, ErrOrderNotFound
	}
	return ob.orders[id], nil
}

func (ob *Orderbook) OrderExists(id common.OrderID) bool {
	return int(id) < common.MaxOrders && ob.orders[id].Quantity != 0
}

func (ob *Orderbook) Executions() []common.Execution { return ob.execs }

func (ob *Orderbook) RestingOrders() int { return ob.nResting }

// BestBid scans downward from the cursor for the first level with live
// volume. The cursor is only an upper bound after cancels empty a level.
func (ob *Orderbook) BestBid() (common.Price, bool) {
	for p := ob.bidMax; p >= 0; p-- {
		if ob.bids[p].volume > 0 {
			return common.Price(p), true
		}
	}
	return 0, false
}

// BestAsk scans upward from the cursor for the first level with live volume.
func (ob *Orderbook) BestAsk() (common.Price, bool) {
	for p := ob.askMin; p < common.PriceLevels; p++ {
		if ob.asks[p].volume > 0 {
			return common.Price(p), true
		}
	}
	return 0, false
}
