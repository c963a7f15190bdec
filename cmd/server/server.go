package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vidar/internal/engine"
	"vidar/internal/metrics"
	vidarNet "vidar/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Address to listen on")
	port := flag.Int("port", 9001, "Port to listen on")
	metricsAddress := flag.String("metrics", ":9102", "Prometheus scrape endpoint address")
	tickers := flag.String("tickers", "AAPL", "Comma-separated tickers to open books for")
	ladder := flag.String("ladder", "dense", "Book ladder representation: 'dense' or 'btree'")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	newBook := func() engine.Book { return engine.NewOrderbook() }
	if *ladder == "btree" {
		newBook = func() engine.Book { return engine.NewTreeOrderbook() }
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the TCP server and the matching engine.
	eng := engine.New(newBook, strings.Split(*tickers, ",")...)
	srv := vidarNet.New(*address, *port, eng)
	eng.SetReporter(srv)

	// Expose prometheus metrics on a side port.
	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(*metricsAddress, nil); err != nil {
			log.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
