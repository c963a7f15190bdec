package engine

import (
	"errors"

	"github.com/rs/zerolog/log"

	"vidar/internal/common"
	"vidar/internal/metrics"
)

var ErrUnknownTicker = errors.New("unknown ticker")

// Reporter receives execution reports after each match. The slice is only
// valid for the duration of the call.
type Reporter interface {
	ReportExecutions(ticker string, execs []common.Execution) error
}

// Engine routes operations to one Book per ticker. Each book is single
// writer; the transport funnels all mutations through one goroutine, so the
// engine takes no locks of its own.
type Engine struct {
	books    map[string]Book
	reporter Reporter
	metrics  *metrics.Collector
}

// New builds an engine with one book per ticker, using newBook to pick the
// ladder representation.
func New(newBook func() Book, tickers ...string) *Engine {
	engine := &Engine{
		books:   make(map[string]Book, len(tickers)),
		metrics: metrics.GetCollector(),
	}
	for _, ticker := range tickers {
		engine.books[ticker] = newBook()
	}
	return engine
}

// SetReporter wires the execution report sink. The transport is constructed
// after the engine, so this cannot happen at New time.
func (e *Engine) SetReporter(reporter Reporter) {
	e.reporter = reporter
}

func (e *Engine) book(ticker string) (Book, error) {
	book, ok := e.books[ticker]
	if !ok {
		return nil, ErrUnknownTicker
	}
	return book, nil
}

// PlaceOrder matches an incoming limit order against the ticker's book and
// rests any residual. Returns the number of resting orders filled against.
func (e *Engine) PlaceOrder(ticker string, order common.Order) (uint32, error) {
	book, err := e.book(ticker)
	if err != nil {
		return 0, err
	}

	matches := book.MatchOrder(order)
	e.metrics.OrdersTotal.WithLabelValues(ticker, order.Side.String()).Inc()
	if matches > 0 {
		e.metrics.ExecutionsTotal.WithLabelValues(ticker).Add(float64(matches))
		if e.reporter != nil {
			if err := e.reporter.ReportExecutions(ticker, book.Executions()); err != nil {
				log.Error().
					Err(err).
					Str("ticker", ticker).
					Msg("unable to report executions")
			}
		}
	}
	e.observeBook(ticker, book)
	return matches, nil
}

// ModifyOrder sets the remaining quantity of a resting order. Zero cancels.
// An unknown id is a deliberate no-op: the cancel may have raced a fill.
func (e *Engine) ModifyOrder(ticker string, id common.OrderID, newQuantity common.Quantity) error {
	book, err := e.book(ticker)
	if err != nil {
		return err
	}

	book.ModifyOrderByID(id, newQuantity)
	if newQuantity == 0 {
		e.metrics.CancelsTotal.WithLabelValues(ticker).Inc()
	} else {
		e.metrics.ModifiesTotal.WithLabelValues(ticker).Inc()
	}
	e.observeBook(ticker, book)
	return nil
}

// CancelOrder removes a resting order by id.
func (e *Engine) CancelOrder(ticker string, id common.OrderID) error {
	return e.ModifyOrder(ticker, id, 0)
}

// VolumeAtLevel reports the aggregate resting quantity at a price level.
func (e *Engine) VolumeAtLevel(ticker string, side common.Side, price common.Price) (uint32, error) {
	book, err := e.book(ticker)
	if err != nil {
		return 0, err
	}
	e.metrics.VolumeQueries.Inc()
	return book.VolumeAtLevel(side, price), nil
}

// LookupOrder returns a copy of a resting order.
func (e *Engine) LookupOrder(ticker string, id common.OrderID) (common.Order, error) {
	book, err := e.book(ticker)
	if err != nil {
		return common.Order{}, err
	}
	return book.LookupOrderByID(id)
}

// OrderExists reports whether an order is resting on the ticker's book.
func (e *Engine) OrderExists(ticker string, id common.OrderID) (bool, error) {
	book, err := e.book(ticker)
	if err != nil {
		return false, err
	}
	return book.OrderExists(id), nil
}

// LogBook dumps a summary of every book through the structured logger.
func (e *Engine) LogBook() {
	for ticker, book := range e.books {
		event := log.Info().
			Str("ticker", ticker).
			Int("restingOrders", book.RestingOrders())
		if bid, ok := book.BestBid(); ok {
			event = event.Uint16("bestBid", uint16(bid))
		}
		if ask, ok := book.BestAsk(); ok {
			event = event.Uint16("bestAsk", uint16(ask))
		}
		event.Msg("book state")
	}
}

func (e *Engine) observeBook(ticker string, book Book) {
	e.metrics.RestingOrders.WithLabelValues(ticker).Set(float64(book.RestingOrders()))
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	e.metrics.BestBid.WithLabelValues(ticker).Set(float64(bid))
	e.metrics.BestAsk.WithLabelValues(ticker).Set(float64(ask))
}
