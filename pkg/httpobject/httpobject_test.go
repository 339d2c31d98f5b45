package httpobject

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixweb/helix/pkg/pool"
)

func TestRequestResetAndClean(t *testing.T) {
	r := NewRequest()
	r.Reset(map[string]interface{}{
		"method": "POST",
		"path":   "/users",
		"headers": map[string]string{
			"Content-Type": "application/json",
		},
	})

	assert.Equal(t, "POST", r.Method)
	assert.Equal(t, "/users", r.Path)
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

	r.Query.Set("page", "2")
	r.Body = append(r.Body, []byte(`{"name":"x"}`)...)

	r.Clean()
	assert.Empty(t, r.Method)
	assert.Empty(t, r.Path)
	assert.Empty(t, r.Header)
	assert.Empty(t, r.Query)
	assert.Empty(t, r.Body)
}

func TestRequestResetIgnoresUnknownValues(t *testing.T) {
	r := NewRequest()
	r.Reset(nil)
	r.Reset(map[string]interface{}{"method": 42, "something": "else"})
	assert.Empty(t, r.Method)
}

func TestResponseWriteAndClean(t *testing.T) {
	w := NewResponse()
	w.Reset(map[string]interface{}{"status": 404})
	w.Header.Set("X-Request-Id", "abc")

	n, err := w.Write([]byte("not found"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, 404, w.StatusCode)
	assert.Equal(t, []byte("not found"), w.Body())

	w.Clean()
	assert.Equal(t, 200, w.StatusCode)
	assert.Empty(t, w.Header)
	assert.Empty(t, w.Body())
}

func TestURIResetParsesComponents(t *testing.T) {
	u := NewURI()
	u.Reset(map[string]interface{}{
		"uri": "https://example.com/search?q=helix#results",
	})

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "example.com", u.Host)
	assert.Equal(t, "/search", u.Path)
	assert.Equal(t, "q=helix", u.RawQuery)
	assert.Equal(t, "results", u.Fragment)
	assert.Equal(t, "https://example.com/search?q=helix#results", u.String())

	u.Clean()
	assert.Equal(t, URI{}, *u)
}

func TestURIResetClearsOnParseError(t *testing.T) {
	u := NewURI()
	u.Reset(map[string]interface{}{"uri": "https://ok.example.com/a"})
	require.NotEmpty(t, u.Host)

	u.Reset(map[string]interface{}{"uri": "://%zz"})
	assert.Equal(t, URI{}, *u)
}

func TestStreamReadWriteClose(t *testing.T) {
	s := NewStream()

	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, s.Len())

	buf := make([]byte, 3)
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("hel"), buf)
	assert.Equal(t, 2, s.Len())

	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Read(buf)
	assert.Equal(t, io.EOF, err)

	require.NoError(t, s.Close())
	_, err = s.Write([]byte("x"))
	assert.Equal(t, io.ErrClosedPipe, err)
	_, err = s.Read(buf)
	assert.Equal(t, io.ErrClosedPipe, err)

	// Clean reopens the stream for the next borrower.
	s.Clean()
	_, err = s.Write([]byte("again"))
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())

	s.Destroy()
	assert.Equal(t, 0, s.Len())
}

func TestRegisterAllKinds(t *testing.T) {
	reg := pool.NewRegistry()
	require.NoError(t, Register(reg))

	assert.Equal(t, []pool.Kind{
		pool.KindRequest,
		pool.KindResponse,
		pool.KindStream,
		pool.KindURI,
	}, reg.Kinds())

	factory, ok := reg.Factory(pool.KindRequest)
	require.True(t, ok)
	_, isRequest := factory.New().(*Request)
	assert.True(t, isRequest)

	// Registering twice is rejected by the registry.
	assert.Error(t, Register(reg))
}

func TestPooledRoundTrip(t *testing.T) {
	reg := pool.NewRegistry()
	require.NoError(t, Register(reg))

	dp, err := pool.New(reg, nil)
	require.NoError(t, err)

	obj, err := dp.BorrowWith(pool.KindRequest, pool.BorrowParams{
		Values: map[string]interface{}{"method": "GET", "path": "/health"},
	})
	require.NoError(t, err)

	req := obj.(*Request)
	assert.Equal(t, "GET", req.Method)
	req.Header.Set("Accept", "application/json")

	require.NoError(t, dp.Return(pool.KindRequest, obj))
	assert.Empty(t, req.Method, "cleaned on return")
	assert.Empty(t, req.Header)
}
