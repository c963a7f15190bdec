package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"vidar/internal/common"
	vidarNet "vidar/internal/net"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	action := flag.String("action", "place", "Action to perform: ['place', 'modify', 'cancel', 'volume', 'log']")

	// Order Parameters
	ticker := flag.String("ticker", "AAPL", "Ticker symbol (max 4 chars)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	price := flag.Uint("price", 100, "Limit price in ticks")
	id := flag.Uint("id", 1, "Order id")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	flag.Parse()

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// Start Listening for Reports (Async)
	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "place":
		// Batched orders take consecutive ids starting from -id.
		orderID := common.OrderID(*id)
		for _, q := range parseQuantities(*qtyStr) {
			msg := vidarNet.NewOrderMessage{
				Ticker:   *ticker,
				ID:       orderID,
				Price:    common.Price(*price),
				Quantity: q,
				Side:     side,
			}
			if err := send(conn, msg.Serialize); err != nil {
				log.Printf("Failed to place order (ID: %d): %v", orderID, err)
			} else {
				fmt.Printf("-> Sent %s Order: %s id=%d %d @ %d\n",
					strings.ToUpper(*sideStr), *ticker, orderID, q, *price)
			}
			orderID++
		}

	case "modify":
		quantities := parseQuantities(*qtyStr)
		if len(quantities) != 1 {
			log.Fatal("Error: -qty must be a single value for modify")
		}
		msg := vidarNet.ModifyOrderMessage{
			Ticker:      *ticker,
			ID:          common.OrderID(*id),
			NewQuantity: quantities[0],
		}
		if err := send(conn, msg.Serialize); err != nil {
			log.Printf("Failed to send modify request: %v", err)
		} else {
			fmt.Printf("-> Sent Modify Request for id %d -> qty %d\n", *id, quantities[0])
		}

	case "cancel":
		msg := vidarNet.CancelOrderMessage{
			Ticker: *ticker,
			ID:     common.OrderID(*id),
		}
		if err := send(conn, msg.Serialize); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for id %d\n", *id)
		}

	case "volume":
		msg := vidarNet.VolumeQueryMessage{
			Ticker: *ticker,
			Side:   side,
			Price:  common.Price(*price),
		}
		if err := send(conn, msg.Serialize); err != nil {
			log.Printf("Failed to send volume query: %v", err)
		} else {
			fmt.Printf("-> Sent Volume Query %s %s @ %d\n", *ticker, side, *price)
		}

	case "log":
		if _, err := conn.Write(vidarNet.SerializeLogBook()); err != nil {
			log.Printf("Failed to send log request: %v", err)
		} else {
			fmt.Println("-> Sent Log Request")
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive reports.
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

func send(conn net.Conn, serialize func() ([]byte, error)) error {
	wire, err := serialize()
	if err != nil {
		return err
	}
	_, err = conn.Write(wire)
	return err
}

// parseQuantities splits a comma-separated string into quantities.
func parseQuantities(input string) []common.Quantity {
	var result []common.Quantity
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 16); err == nil {
			result = append(result, common.Quantity(val))
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

// readReports prints every report frame the server pushes at us.
func readReports(conn net.Conn) {
	buffer := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF {
				log.Printf("Report stream closed: %v", err)
			}
			os.Exit(0)
		}

		// A read may batch several frames back to back.
		frame := buffer[:n]
		for len(frame) > 0 {
			report, err := vidarNet.ParseReport(frame)
			if err != nil {
				log.Printf("Warning: undecodable report (%d bytes): %v", len(frame), err)
				break
			}
			printReport(report)
			frame = frame[vidarNet.ReportFixedHeaderLen+int(report.ErrLen):]
		}
	}
}

func printReport(r vidarNet.Report) {
	switch r.TypeOf {
	case vidarNet.OrderAck:
		fmt.Printf("<- ACK %s id=%d matched %d resting order(s)\n", r.Ticker, r.TakerID, r.MatchCount)
	case vidarNet.ExecutionReport:
		fmt.Printf("<- EXEC %s taker=%d maker=%d %v %d @ %d\n",
			r.Ticker, r.TakerID, r.MakerID, r.Side, r.Quantity, r.Price)
	case vidarNet.VolumeReport:
		fmt.Printf("<- VOLUME %s %v @ %d = %d\n", r.Ticker, r.Side, r.Price, r.Volume)
	case vidarNet.ErrorReport:
		fmt.Printf("<- ERROR %s\n", r.Err)
	default:
		fmt.Printf("<- Unknown report type %d\n", r.TypeOf)
	}
}
