package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"httpstream/internal/headers"
	"httpstream/internal/request"
	"httpstream/internal/response"
)

// MaxConcurrentConnections bounds how many connections may be mid-parse or
// mid-handler at once. The accept loop itself stays unbounded — a burst of
// connections still gets accepted promptly — but their handler goroutines
// queue on the semaphore instead of piling up unbounded work on a few
// slow or adversarial clients.
const MaxConcurrentConnections = 256

type Server struct {
	Port     int
	listener net.Listener
	closed   atomic.Bool
	handler  Handler
	sem      *semaphore.Weighted
}

// Handler answers one request. w arrives pre-populated with Status == OK;
// the handler sets Status/Headers/Body as needed. body is the already
// fully-drained request body (nil if the request had none).
type Handler func(w *response.Writer, h headers.Headers, body []byte)

func Serve(port int, handler Handler) (*Server, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s := &Server{
		Port:     port,
		listener: l,
		handler:  handler,
		sem:      semaphore.NewWeighted(MaxConcurrentConnections),
	}
	go s.listen()
	return s, nil
}

func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) listen() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go s.handle(conn)
	}
}

func fmtDur(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func writeBadRequest(conn net.Conn) {
	_, _ = io.WriteString(conn, "HTTP/1.1 400 Bad Request\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
}

// handle owns one connection end to end: it binds one request.Parser to
// conn and loops ParseHeaders -> handler -> response for as long as the
// client keeps the connection alive.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	ctx := context.Background()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	remoteHost, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	p, err := request.NewParser(conn, request.Limits{})
	if err != nil {
		log.Printf("%s\t%s\t%s\t%d\t%s\terr=%q", remoteHost, "-", "-", 400, "0.0ms", err.Error())
		return
	}
	defer p.Release()

	for {
		start := time.Now()

		h, err := p.ParseHeaders(ctx)
		if err != nil {
			writeBadRequest(conn)
			log.Printf("%s\t%s\t%s\t%d\t%s\terr=%q",
				remoteHost, "-", "-", 400, fmtDur(time.Since(start)), err.Error())
			return
		}
		if h == nil {
			// Clean end of the keep-alive stream: nothing to log, nothing
			// to answer.
			return
		}

		body, err := p.ReadBody(ctx, h)
		if err != nil {
			writeBadRequest(conn)
			log.Printf("%s\t%s\t%s\t%d\t%s\terr=%q\trx=%d",
				remoteHost, h.GetString(headers.KeyMethod), h.GetString(headers.KeyPath), 400,
				fmtDur(time.Since(start)), err.Error(), h.RX())
			return
		}

		w := response.NewWriter(conn)
		w.Status = response.OK
		s.handler(w, h, body)

		if err := w.WriteStatusLine(w.Status); err != nil {
			log.Printf("%s\t%s\t%s\t%d\t%s\terr=%q",
				remoteHost, h.GetString(headers.KeyMethod), h.GetString(headers.KeyPath), 500,
				fmtDur(time.Since(start)), err.Error())
			return
		}

		respHeaders := response.GetDefaultHeaders(len(w.Body))
		if w.Headers != nil {
			for k := range w.Headers {
				respHeaders.Set(k, w.Headers.GetString(k))
			}
		}
		respHeaders.Set("connection", "keep-alive")
		if err := w.WriteHeaders(respHeaders); err != nil {
			log.Printf("%s\t%s\t%s\t%d\t%s\terr=%q",
				remoteHost, h.GetString(headers.KeyMethod), h.GetString(headers.KeyPath), 500,
				fmtDur(time.Since(start)), err.Error())
			return
		}

		if _, err := w.WriteBody(w.Body); err != nil {
			log.Printf("%s\t%s\t%s\t%d\t%s\terr=%q",
				remoteHost, h.GetString(headers.KeyMethod), h.GetString(headers.KeyPath), 500,
				fmtDur(time.Since(start)), err.Error())
			return
		}

		log.Printf("%s\t%s\t%s\t%d\t%s\trx=%d",
			remoteHost, h.GetString(headers.KeyMethod), h.GetString(headers.KeyPath), int(w.Status),
			fmtDur(time.Since(start)), h.RX())
	}
}
