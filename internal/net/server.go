package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vidar/internal/common"
	"vidar/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// Engine is the order-handling surface the server drives. Every call is made
// from the single session-handler goroutine, which keeps each book single
// writer even with many connected clients.
type Engine interface {
	PlaceOrder(ticker string, order common.Order) (uint32, error)
	ModifyOrder(ticker string, id common.OrderID, newQuantity common.Quantity) error
	VolumeAtLevel(ticker string, side common.Side, price common.Price) (uint32, error)
	LogBook()
}

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn      net.Conn
	sessionID string
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

type Server struct {
	address            string
	port               int
	engine             Engine
	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex
	clientMessages     chan ClientMessage
}

func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		clientMessages: make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	// Close the listener once the tomb dies so Accept unblocks on shutdown.
	t.Go(func() error {
		<-t.Dying()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
		return nil
	})

	// Start the worker pool.
	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	// Start the session handler.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					log.Error().Err(err).Msg("error accepting client")
					continue
				}
			}

			// Add the client to client sessions we are tracking.
			// We expect to potentially maintain a long TCP session.
			session := s.addClientSession(conn)
			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Str("sessionID", session.sessionID).
				Msg("new client added")

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// ReportExecutions broadcasts one execution report per match event to every
// connected session. Implements engine.Reporter.
func (s *Server) ReportExecutions(ticker string, execs []common.Execution) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	for _, exec := range execs {
		wire, err := executionReport(ticker, exec).Serialize()
		if err != nil {
			return err
		}
		for address, client := range s.clientSessions {
			if _, err := client.conn.Write(wire); err != nil {
				log.Error().
					Err(err).
					Str("address", address).
					Msg("dropping unwritable session")
				delete(s.clientSessions, address)
			}
		}
	}
	return nil
}

// sendReport writes one report frame back to a single client.
func (s *Server) sendReport(clientAddress string, report Report) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	wire, err := report.Serialize()
	if err != nil {
		return err
	}

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}

	if _, err := client.conn.Write(wire); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) reportError(clientAddress string, err error) {
	if sendErr := s.sendReport(clientAddress, errorReport(err)); sendErr != nil {
		log.Error().
			Err(sendErr).
			Str("clientAddress", clientAddress).
			Msg("unable to report error to client")
	}
}

// sessionHandler reads off incoming messages from clients and drives the
// engine. It is the only goroutine that mutates the books.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			if err := s.handleMessage(message); err != nil {
				log.Error().
					Err(err).
					Str("clientAddress", message.clientAddress).
					Msg("error handling message")
				s.reportError(message.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(message ClientMessage) error {
	switch message.message.GetType() {
	case Heartbeat:
		return nil
	case NewOrder:
		order, ok := message.message.(NewOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		matches, err := s.engine.PlaceOrder(order.Ticker, order.Order())
		if err != nil {
			return err
		}
		return s.sendReport(message.clientAddress, orderAckReport(order.Ticker, order.ID, matches))
	case ModifyOrder:
		modify, ok := message.message.(ModifyOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		return s.engine.ModifyOrder(modify.Ticker, modify.ID, modify.NewQuantity)
	case CancelOrder:
		cancel, ok := message.message.(CancelOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		return s.engine.ModifyOrder(cancel.Ticker, cancel.ID, 0)
	case VolumeQuery:
		query, ok := message.message.(VolumeQueryMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		volume, err := s.engine.VolumeAtLevel(query.Ticker, query.Side, query.Price)
		if err != nil {
			return err
		}
		return s.sendReport(message.clientAddress, volumeReport(query.Ticker, query.Side, query.Price, volume))
	case LogBook:
		s.engine.LogBook()
		return nil
	default:
		log.Error().
			Int("messageType", int(message.message.GetType())).
			Msg("invalid message type")
		return ErrInvalidMessageType
	}
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses and passes it forward to sessionHandler.
// If the connection dies, the client session is cleaned up. Note, any error
// returned from here is fatal to the pool.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	address := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", address).
			Err(err).
			Msg("failed setting deadline for connection")
		s.dropClientSession(conn)
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			// Likely the client has exited, or idled out past the
			// heartbeat window. Clean up the session.
			log.Info().
				Err(err).
				Str("address", address).
				Msg("closing client connection")
			s.dropClientSession(conn)
			return nil
		}

		message, err := ParseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", address).
				Msg("error parsing message")
			s.reportError(address, err)
		} else {
			s.clientMessages <- ClientMessage{
				message:       message,
				clientAddress: address,
			}
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// addClientSession is an atomic map add. Each session is tagged for logging.
func (s *Server) addClientSession(conn net.Conn) ClientSession {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	session := ClientSession{
		conn:      conn,
		sessionID: uuid.New().String(),
	}
	s.clientSessions[conn.RemoteAddr().String()] = session
	return session
}

// dropClientSession is an atomic map remove plus connection close.
func (s *Server) dropClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, conn.RemoteAddr().String())
	if err := conn.Close(); err != nil {
		log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
	}
}
