package flickr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request is a fully built, possibly signed, API call. It is not sent by
// itself; Client.Execute hands it to a Transport.
type Request struct {
	Method   string
	Args     Args
	Endpoint string
}

// BuildRequest injects method and api_key into a copy of args and, when the
// credentials carry a secret, signs the result into api_sig.
func BuildRequest(creds Credentials, method string, args Args, endpoint string) *Request {
	final := args.Clone()
	delete(final, "api_sig")
	final["method"] = method
	final["api_key"] = creds.APIKey
	if creds.CanSign() {
		final["api_sig"] = Sign(creds.APISecret, final)
	}
	return &Request{Method: method, Args: final, Endpoint: endpoint}
}

// values converts the arguments into url.Values
func (r *Request) values() url.Values {
	v := make(url.Values, len(r.Args))
	for k, val := range r.Args {
		v.Set(k, val)
	}
	return v
}

// Encode returns the form encoded body, keys sorted
func (r *Request) Encode() string {
	return r.values().Encode()
}

// URL returns the endpoint with the arguments as query string
func (r *Request) URL() (*url.URL, error) {
	u, err := url.Parse(r.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", r.Endpoint, err)
	}
	u.RawQuery = r.Encode()
	return u, nil
}

// HTTPRequest builds the POST request carrying the form encoded body
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, strings.NewReader(r.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", formContentType)
	return req, nil
}

// cacheKey identifies the request for the response cache
func (r *Request) cacheKey() string {
	return r.Endpoint + "?" + r.Encode()
}
