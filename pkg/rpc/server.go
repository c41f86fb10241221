// Package rpc is the newline-delimited JSON RPC transport of the tool
// server. One request object per line in, one response object per line
// out, over a TCP connection or any other byte stream (stdio).
//
// Example server:
//
//	s := rpc.NewServer()
//	s.Register("tools/list", func(ctx context.Context, params json.RawMessage) (any, error) {
//	    return registry.Specs(), nil
//	})
//	s.ServeConn(ctx, rpc.Stdio())
//
// Example client:
//
//	c, _ := rpc.Dial("localhost:7070")
//	var specs []tools.ToolSpec
//	c.Call("tools/list", nil, &specs)
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
)

// HandlerFunc processes an RPC request and returns a response or error.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Request is the wire format for an RPC request.
type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the wire format for an RPC response.
type Response struct {
	ID    string `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server dispatches requests to registered method handlers.
type Server struct {
	handlers map[string]HandlerFunc
	listener net.Listener
	logger   *slog.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a new RPC server.
func NewServer() *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
		logger:   slog.Default().With("component", "rpc-server"),
		done:     make(chan struct{}),
	}
}

// Register adds a handler for the given method name.
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Serve accepts TCP connections on addr and serves each one on its own
// goroutine. It blocks until Stop is called or ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				s.logger.Error("accept error", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			finished := make(chan struct{})
			defer close(finished)
			go func() {
				select {
				case <-s.done:
					conn.Close()
				case <-finished:
					conn.Close()
				}
			}()
			if err := s.ServeConn(ctx, conn); err != nil {
				s.logger.Warn("connection closed with error", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

// ServeConn serves requests read from rw until the peer closes the stream
// or ctx is done. A clean end of stream returns nil.
func (s *Server) ServeConn(ctx context.Context, rw io.ReadWriter) error {
	decoder := json.NewDecoder(rw)
	encoder := json.NewEncoder(rw)

	for {
		if ctx.Err() != nil {
			return nil
		}
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				encoder.Encode(Response{Error: fmt.Sprintf("malformed request: %v", err)})
				return fmt.Errorf("decoding request: %w", err)
			}
			return fmt.Errorf("reading request: %w", err)
		}

		resp := s.dispatch(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("writing response to %s: %w", req.Method, err)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	s.mu.RLock()
	handler, exists := s.handlers[req.Method]
	s.mu.RUnlock()

	resp := Response{ID: req.ID}
	if !exists {
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		return resp
	}
	data, err := handler(ctx, req.Params)
	if err != nil {
		s.logger.Debug("handler error", "method", req.Method, "error", err)
		resp.Error = err.Error()
		return resp
	}
	resp.Data = data
	return resp
}

// MethodCount returns the number of registered methods.
func (s *Server) MethodCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Stop closes the listener and waits for open connections to finish.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.RLock()
		ln := s.listener
		s.mu.RUnlock()
		if ln != nil {
			ln.Close()
		}
		s.wg.Wait()
		s.logger.Info("rpc server stopped")
	})
}

type stdio struct {
	io.Reader
	io.Writer
}

// Stdio returns the process's standard input and output as one stream.
func Stdio() io.ReadWriter {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}
}
