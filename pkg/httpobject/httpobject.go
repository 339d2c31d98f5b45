// Package httpobject provides the poolable HTTP value types served by the
// four built-in pool kinds: request, response, uri, and stream. Each type
// implements the pool lifecycle capabilities it needs (Reset on borrow,
// Clean on return, Destroy on discard) so a DynamicPool can recycle them
// without knowing their internals.
package httpobject

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/helixweb/helix/pkg/pool"
)

// Request is a reusable HTTP request value.
type Request struct {
	Method string
	Path   string
	Proto  string
	Header http.Header
	Query  url.Values
	Body   []byte
}

// NewRequest creates a request with pre-sized header and query maps.
func NewRequest() *Request {
	return &Request{
		Proto:  "HTTP/1.1",
		Header: make(http.Header, 8),
		Query:  make(url.Values, 4),
		Body:   make([]byte, 0, 512),
	}
}

// Reset applies new logical values to a reused request. Recognized keys:
// "method", "path" (strings) and "headers" (map[string]string).
func (r *Request) Reset(values map[string]interface{}) {
	if values == nil {
		return
	}
	if m, ok := values["method"].(string); ok {
		r.Method = m
	}
	if p, ok := values["path"].(string); ok {
		r.Path = p
	}
	if hs, ok := values["headers"].(map[string]string); ok {
		for k, v := range hs {
			r.Header.Set(k, v)
		}
	}
}

// Clean strips per-request state before the request re-enters the pool.
func (r *Request) Clean() {
	r.Method = ""
	r.Path = ""
	for k := range r.Header {
		delete(r.Header, k)
	}
	for k := range r.Query {
		delete(r.Query, k)
	}
	r.Body = r.Body[:0]
}

// Response is a reusable HTTP response value.
type Response struct {
	StatusCode int
	Header     http.Header
	body       bytes.Buffer
}

// NewResponse creates a response with a pre-sized header map.
func NewResponse() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header, 8),
	}
}

// Write appends to the response body.
func (r *Response) Write(p []byte) (int, error) {
	return r.body.Write(p)
}

// Body returns the accumulated response body.
func (r *Response) Body() []byte {
	return r.body.Bytes()
}

// Reset applies new logical values. Recognized key: "status" (int).
func (r *Response) Reset(values map[string]interface{}) {
	if values == nil {
		return
	}
	if code, ok := values["status"].(int); ok {
		r.StatusCode = code
	}
}

// Clean strips per-request state before the response re-enters the pool.
func (r *Response) Clean() {
	r.StatusCode = http.StatusOK
	for k := range r.Header {
		delete(r.Header, k)
	}
	r.body.Reset()
}

// URI is a reusable parsed-URI value.
type URI struct {
	Scheme   string
	Host     string
	Path     string
	RawQuery string
	Fragment string
}

// NewURI creates an empty URI value.
func NewURI() *URI {
	return &URI{}
}

// Reset applies new logical values. Recognized key: "uri" (string), parsed
// into the component fields; unparseable values leave the URI cleared.
func (u *URI) Reset(values map[string]interface{}) {
	if values == nil {
		return
	}
	raw, ok := values["uri"].(string)
	if !ok {
		return
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		u.Clean()
		return
	}
	u.Scheme = parsed.Scheme
	u.Host = parsed.Host
	u.Path = parsed.Path
	u.RawQuery = parsed.RawQuery
	u.Fragment = parsed.Fragment
}

// Clean zeroes all components.
func (u *URI) Clean() {
	*u = URI{}
}

// String reassembles the URI from its components.
func (u *URI) String() string {
	rebuilt := url.URL{
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     u.Path,
		RawQuery: u.RawQuery,
		Fragment: u.Fragment,
	}
	return rebuilt.String()
}

// Stream is a reusable in-memory body buffer implementing io.Reader,
// io.Writer, and io.Closer.
type Stream struct {
	buf    []byte
	off    int
	closed bool
}

// NewStream creates a stream with a 4KB initial buffer.
func NewStream() *Stream {
	return &Stream{buf: make([]byte, 0, 4096)}
}

// Write appends to the stream buffer.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Read consumes from the stream buffer.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.off >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.off:])
	s.off += n
	return n, nil
}

// Len returns the number of unread bytes.
func (s *Stream) Len() int {
	return len(s.buf) - s.off
}

// Close marks the stream closed. Reopened by Clean on return to the pool.
func (s *Stream) Close() error {
	s.closed = true
	return nil
}

// Clean rewinds and reopens the stream, keeping the buffer for reuse.
func (s *Stream) Clean() {
	s.buf = s.buf[:0]
	s.off = 0
	s.closed = false
}

// Destroy releases the buffer when the pool discards the stream.
func (s *Stream) Destroy() {
	s.closed = true
	s.buf = nil
	s.off = 0
}

// Register registers factories for all four built-in kinds on the registry.
func Register(reg *pool.Registry) error {
	factories := map[pool.Kind]pool.Factory{
		pool.KindRequest:  pool.FactoryFunc(func() pool.Object { return NewRequest() }),
		pool.KindResponse: pool.FactoryFunc(func() pool.Object { return NewResponse() }),
		pool.KindURI:      pool.FactoryFunc(func() pool.Object { return NewURI() }),
		pool.KindStream:   pool.FactoryFunc(func() pool.Object { return NewStream() }),
	}
	for kind, factory := range factories {
		if err := reg.Register(kind, factory); err != nil {
			return err
		}
	}
	return nil
}
