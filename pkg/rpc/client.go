package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
)

// Client is a synchronous RPC client over a single stream.
type Client struct {
	conn    io.ReadWriteCloser
	encoder *json.Encoder
	decoder *json.Decoder
	mu      sync.Mutex
	nextID  atomic.Int64
}

// Dial connects to an RPC server at the given TCP address.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established stream, such as a subprocess's pipes or one
// end of net.Pipe.
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{
		conn:    conn,
		encoder: json.NewEncoder(conn),
		decoder: json.NewDecoder(conn),
	}
}

// Call invokes the named method with params and decodes the response data
// into result. Call is safe for concurrent use; calls are serialised.
func (c *Client) Call(method string, params any, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := strconv.FormatInt(c.nextID.Add(1), 10)

	req := Request{Method: method, ID: id}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = raw
	}

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	var resp struct {
		ID    string          `json:"id"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := c.decoder.Decode(&resp); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.ID != id {
		return fmt.Errorf("response id %q does not match request id %q", resp.ID, id)
	}
	if resp.Error != "" {
		return fmt.Errorf("rpc error: %s", resp.Error)
	}

	if result != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("unmarshaling into result: %w", err)
		}
	}
	return nil
}

// Close closes the underlying stream.
func (c *Client) Close() error {
	return c.conn.Close()
}
