package engine

import (
	"github.com/tidwall/btree"

	"vidar/internal/common"
)

// treeLevel is one populated price level in the btree ladder. Same FIFO queue
// and cached-volume discipline as the dense book; the level itself is
// allocated on demand and removed once its queue drains.
type treeLevel struct {
	price  common.Price
	ids    []common.OrderID
	head   int
	volume uint32
}

func (l *treeLevel) size() int { return len(l.ids) - l.head }

func (l *treeLevel) push(id common.OrderID) { l.ids = append(l.ids, id) }

func (l *treeLevel) pop() {
	l.head++
	if l.head == len(l.ids) {
		l.ids = l.ids[:0]
		l.head = 0
	}
}

type treeLadder = btree.BTreeG[*treeLevel]

// TreeOrderbook keeps each ladder in a btree with inverted comparators, so
// MinMut is always the best price on either side. Memory is proportional to
// the populated levels, at the cost of tree search on the hot path. Matches
// the dense Orderbook observable-for-observable.
type TreeOrderbook struct {
	// Sorted best-first: greatest price for bids, least for asks.
	bids *treeLadder
	asks *treeLadder

	directory map[common.OrderID]*common.Order
	execs     []common.Execution
}

func NewTreeOrderbook() *TreeOrderbook {
	bids := btree.NewBTreeG(func(a, b *treeLevel) bool {
		return a.price > b.price
	})
	asks := btree.NewBTreeG(func(a, b *treeLevel) bool {
		return a.price < b.price
	})
	return &TreeOrderbook{
		bids:      bids,
		asks:      asks,
		directory: make(map[common.OrderID]*common.Order),
	}
}

func (ob *TreeOrderbook) ladder(side common.Side) *treeLadder {
	if side == common.Buy {
		return ob.bids
	}
	return ob.asks
}

func (ob *TreeOrderbook) MatchOrder(incoming common.Order) uint32 {
	ob.execs = ob.execs[:0]
	w := incoming
	if w.Quantity == 0 {
		return 0
	}

	var count uint32
	opposite := ob.ladder(w.Side.Opposite())
	for w.Quantity > 0 {
		best, ok := opposite.MinMut()
		if !ok {
			break
		}
		if w.Side == common.Buy && best.price > w.Price {
			break
		}
		if w.Side == common.Sell && best.price < w.Price {
			break
		}

		count += ob.fill(&w, best)
		if best.size() == 0 {
			opposite.Delete(best)
		}
	}

	if w.Quantity > 0 {
		ob.rest(w)
	}
	return count
}

func (ob *TreeOrderbook) fill(w *common.Order, lvl *treeLevel) uint32 {
	var count uint32
	restingSide := w.Side.Opposite()
	for w.Quantity > 0 && lvl.size() > 0 {
		id := lvl.ids[lvl.head]
		r, ok := ob.directory[id]
		if !ok || r.Price != lvl.price || r.Side != restingSide {
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
			Price:    lvl.price,
			Quantity: trade,
			Side:     w.Side,
		})

		if r.Quantity == 0 {
			lvl.pop()
			delete(ob.directory, id)
		}
	}
	return count
}

func (ob *TreeOrderbook) rest(w common.Order) {
	ladder := ob.ladder(w.Side)
	lvl, ok := ladder.GetMut(&treeLevel{price: w.Price})
	if !ok {
		lvl = &treeLevel{price: w.Price}
		ladder.Set(lvl)
	}
	lvl.push(w.ID)
	lvl.volume += uint32(w.Quantity)

	order := w
	ob.directory[w.ID] = &order
}

func (ob *TreeOrderbook) ModifyOrderByID(id common.OrderID, newQuantity common.Quantity) {
	r, ok := ob.directory[id]
	if !ok {
		return
	}

	lvl, ok := ob.ladder(r.Side).GetMut(&treeLevel{price: r.Price})
	if ok {
		lvl.volume += uint32(newQuantity)
		lvl.volume -= uint32(r.Quantity)
	}
	if newQuantity == 0 {
		// Queue entry stays behind; the matcher drops it on encounter.
		delete(ob.directory, id)
		return
	}
	r.Quantity = newQuantity
}

func (ob *TreeOrderbook) VolumeAtLevel(side common.Side, price common.Price) uint32 {
	lvl, ok := ob.ladder(side).Get(&treeLevel{price: price})
	if !ok {
		return 0
	}
	return lvl.volume
}

func (ob *TreeOrderbook) LookupOrderByID(id common.OrderID) (common.Order, error) {
	r, ok := ob.directory[id]
	if !ok {
		return common.Order{}, ErrOrderNotFound
	}
	return *r, nil
}

func (ob *TreeOrderbook) OrderExists(id common.OrderID) bool {
	_, ok := ob.directory[id]
	return ok
}

func (ob *TreeOrderbook) Executions() []common.Execution { return ob.execs }

func (ob *TreeOrderbook) RestingOrders() int { return len(ob.directory) }

// BestBid skips over levels drained to zero by cancels but not yet collected.
func (ob *TreeOrderbook) BestBid() (common.Price, bool) {
	return bestOf(ob.bids)
}

func (ob *TreeOrderbook) BestAsk() (common.Price, bool) {
	return bestOf(ob.asks)
}

func bestOf(ladder *treeLadder) (common.Price, bool) {
	var price common.Price
	var found bool
	ladder.Scan(func(lvl *treeLevel) bool {
		if lvl.volume > 0 {
			price, found = lvl.price, true
			return false
		}
		return true
	})
	return price, found
}
