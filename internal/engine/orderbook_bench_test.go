package engine

import (
	"math/rand"
	"testing"

	"vidar/internal/common"
)

// Benchmarks comparing the two ladder representations:
// 1. Dense array + cursors (Orderbook)
// 2. B-tree keyed by price (TreeOrderbook)

// generateBenchOrders builds a mixed flow in a narrow band around a mid
// price so a realistic share of the orders cross.
func generateBenchOrders(n int) []common.Order {
	rng := rand.New(rand.NewSource(1))
	orders := make([]common.Order, n)
	for i := range orders {
		orders[i] = common.Order{
			ID:       common.OrderID(i % (common.MaxOrders - 1)),
			Price:    common.Price(480 + rng.Intn(40)),
			Quantity: common.Quantity(1 + rng.Intn(100)),
			Side:     common.Side(rng.Intn(2)),
		}
	}
	return orders
}

func benchmarkMatchOrder(b *testing.B, book Book) {
	orders := generateBenchOrders(100_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		order := orders[i%len(orders)]
		// Ids recycle; free the slot so the incoming id is never live.
		book.ModifyOrderByID(order.ID, 0)
		book.MatchOrder(order)
	}
}

func BenchmarkMatchOrder_Dense(b *testing.B) {
	benchmarkMatchOrder(b, NewOrderbook())
}

func BenchmarkMatchOrder_BTree(b *testing.B) {
	benchmarkMatchOrder(b, NewTreeOrderbook())
}

// restingBook builds a book with non-crossing liquidity on both sides.
func restingBook(book Book, n int) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < n; i++ {
		side := common.Side(rng.Intn(2))
		price := 400 + rng.Intn(90)
		if side == common.Sell {
			price = 510 + rng.Intn(90)
		}
		book.MatchOrder(common.Order{
			ID:       common.OrderID(i),
			Price:    common.Price(price),
			Quantity: common.Quantity(1 + rng.Intn(100)),
			Side:     side,
		})
	}
}

func benchmarkModifyOrder(b *testing.B, book Book) {
	const resting = 10_000
	restingBook(book, resting)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		book.ModifyOrderByID(common.OrderID(i%resting), common.Quantity(1+i%50))
	}
}

func BenchmarkModifyOrder_Dense(b *testing.B) {
	benchmarkModifyOrder(b, NewOrderbook())
}

func BenchmarkModifyOrder_BTree(b *testing.B) {
	benchmarkModifyOrder(b, NewTreeOrderbook())
}

func benchmarkVolumeAtLevel(b *testing.B, book Book) {
	restingBook(book, 10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		book.VolumeAtLevel(common.Side(i%2), common.Price(400+i%200))
	}
}

func BenchmarkVolumeAtLevel_Dense(b *testing.B) {
	benchmarkVolumeAtLevel(b, NewOrderbook())
}

func BenchmarkVolumeAtLevel_BTree(b *testing.B) {
	benchmarkVolumeAtLevel(b, NewTreeOrderbook())
}
