package flickr

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// Transport sends a built HTTP request. Implementations must be safe for
// concurrent use when the Client is shared between goroutines.
type Transport interface {
	Send(req *http.Request) (*http.Response, error)
}

// HTTPTransport is the default Transport backed by an *http.Client
type HTTPTransport struct {
	Client *http.Client
}

// Send implements Transport
func (t *HTTPTransport) Send(req *http.Request) (*http.Response, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(req *http.Request) (*http.Response, error)

// Send implements Transport
func (f TransportFunc) Send(req *http.Request) (*http.Response, error) {
	return f(req)
}

// setAcceptEncoding pins the encoding so the net/http transport does not
// negotiate gzip on its own.
func setAcceptEncoding(req *http.Request, compression bool) {
	if compression {
		req.Header.Set("Accept-Encoding", "gzip")
		return
	}
	req.Header.Set("Accept-Encoding", "identity")
}

// inflate returns the gunzipped body when the response declares gzip
// content encoding. Bodies that fail to inflate are returned verbatim.
func inflate(header http.Header, body []byte) []byte {
	if !strings.EqualFold(strings.TrimSpace(header.Get("Content-Encoding")), "gzip") {
		return body
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return body
	}
	return out
}
