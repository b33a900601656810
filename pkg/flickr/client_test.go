package flickr

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
)

// verifySignature recomputes api_sig over every field but api_sig
func verifySignature(t *testing.T, form url.Values) {
	t.Helper()

	args := Args{}
	for k := range form {
		if k != "api_sig" {
			args[k] = form.Get(k)
		}
	}
	expected := Sign(testAPISecret, args)
	if actual := form.Get("api_sig"); actual != expected {
		t.Errorf("Signature mismatch: expected %s, got %s", expected, actual)
	}
}

// mockServer creates a test server that validates the form and signature and
// answers with the given status and body
func mockServer(t *testing.T, validate func(form url.Values), status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Expected form content type, got %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if key := r.PostForm.Get("api_key"); key != testAPIKey {
			t.Errorf("Expected API key %s, got %s", testAPIKey, key)
		}
		verifySignature(t, r.PostForm)

		if validate != nil {
			validate(r.PostForm)
		}

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

// newTestClient creates a client configured for testing
func newTestClient(restURL string) *Client {
	return NewClient(&ClientConfig{
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		RESTURL:   restURL,
		Timeout:   5 * time.Second,
	})
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []CallInfo
}

func (o *recordingObserver) ObserveCall(_ context.Context, call CallInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, call)
}

func TestBuildRequest_InjectsAndSigns(t *testing.T) {
	creds := Credentials{APIKey: testAPIKey, APISecret: testAPISecret}
	args := Args{"tags": "kitten", "api_sig": "forged"}

	req := BuildRequest(creds, "flickr.photos.search", args, DefaultRESTURL)

	if req.Args["method"] != "flickr.photos.search" {
		t.Errorf("Expected method injected, got %q", req.Args["method"])
	}
	if req.Args["api_key"] != testAPIKey {
		t.Errorf("Expected api_key injected, got %q", req.Args["api_key"])
	}
	want := Sign(testAPISecret, Args{"tags": "kitten", "method": "flickr.photos.search", "api_key": testAPIKey})
	if req.Args["api_sig"] != want {
		t.Errorf("Expected api_sig %s, got %s", want, req.Args["api_sig"])
	}
	if _, ok := args["method"]; ok {
		t.Error("Expected caller args to stay untouched")
	}
	if args["api_sig"] != "forged" {
		t.Error("Expected caller api_sig to stay untouched")
	}

	u, err := req.URL()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u.Query().Get("tags") != "kitten" {
		t.Errorf("Expected tags in query, got %s", u.RawQuery)
	}
}

func TestBuildRequest_UnsignedWithoutSecret(t *testing.T) {
	req := BuildRequest(Credentials{APIKey: testAPIKey}, "flickr.test.echo", nil, DefaultRESTURL)

	if _, ok := req.Args["api_sig"]; ok {
		t.Error("Expected no api_sig without secret")
	}
	if req.Encode() != "api_key=test-api-key&method=flickr.test.echo" {
		t.Errorf("Unexpected body %s", req.Encode())
	}
}

func TestExecute_Success(t *testing.T) {
	server := mockServer(t, func(form url.Values) {
		if form.Get("method") != "flickr.test.echo" {
			t.Errorf("Expected method flickr.test.echo, got %s", form.Get("method"))
		}
		if form.Get("foo") != "bar" {
			t.Errorf("Expected foo=bar, got %s", form.Get("foo"))
		}
	}, 200, `<rsp stat="ok"><method>flickr.test.echo</method><foo>bar</foo></rsp>`)
	defer server.Close()

	resp, err := newTestClient(server.URL).Execute(context.Background(), "flickr.test.echo", Args{"foo": "bar"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("Expected OK, got %s", resp.Outcome)
	}
	if resp.HTTPStatus != 200 {
		t.Errorf("Expected status 200, got %d", resp.HTTPStatus)
	}
	if got := resp.Payload.TextOf("foo"); got != "bar" {
		t.Errorf("Expected echoed foo 'bar', got '%s'", got)
	}
}

func TestExecute_ServiceFailure(t *testing.T) {
	server := mockServer(t, nil, 200, `<rsp stat="fail"><err code="112" msg="Method &quot;flickr.nope&quot; not found"/></rsp>`)
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Execute(context.Background(), "flickr.nope", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Outcome != OutcomeFail || resp.ErrorCode != 112 {
		t.Fatalf("Expected Fail{112}, got %s{%d}", resp.Outcome, resp.ErrorCode)
	}
	if resp.ErrorMessage != `Method "flickr.nope" not found` {
		t.Errorf("Unexpected message %q", resp.ErrorMessage)
	}

	_, err = client.Call(context.Background(), "flickr.nope", nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.Code != ErrCodeMethodNotFound {
		t.Errorf("Expected code 112, got %d", apiErr.Code)
	}
}

func TestExecute_Non200IsProtocolError(t *testing.T) {
	server := mockServer(t, nil, http.StatusServiceUnavailable, `<rsp stat="ok"/>`)
	defer server.Close()

	resp, err := newTestClient(server.URL).Execute(context.Background(), "flickr.test.echo", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Outcome != OutcomeProtocolError {
		t.Fatalf("Expected protocol error, got %s", resp.Outcome)
	}
	if resp.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.HTTPStatus)
	}
}

func TestExecute_TransportErrorPropagates(t *testing.T) {
	errOffline := errors.New("network is unreachable")
	client := NewClientWithTransport(&ClientConfig{APIKey: testAPIKey}, TransportFunc(func(*http.Request) (*http.Response, error) {
		return nil, errOffline
	}))

	resp, err := client.Execute(context.Background(), "flickr.test.echo", nil)
	if err != errOffline {
		t.Fatalf("Expected transport error unmodified, got %v", err)
	}
	if resp != nil {
		t.Errorf("Expected nil response, got %+v", resp)
	}
}

func TestExecute_CustomTransportSeesRequest(t *testing.T) {
	var seen *http.Request
	client := NewClientWithTransport(&ClientConfig{APIKey: testAPIKey}, TransportFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		rec := httptest.NewRecorder()
		rec.WriteString(`<rsp stat="ok"/>`)
		return rec.Result(), nil
	}))

	resp, err := client.Execute(context.Background(), "flickr.test.null", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !resp.OK() {
		t.Errorf("Expected OK, got %s", resp.Outcome)
	}
	if seen == nil || seen.URL.String() != DefaultRESTURL {
		t.Errorf("Expected request to default endpoint, got %v", seen)
	}
}

func TestExecute_UnsignedWithoutSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if _, ok := r.PostForm["api_sig"]; ok {
			t.Error("Expected no api_sig without secret")
		}
		w.Write([]byte(`<rsp stat="ok"/>`))
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{APIKey: testAPIKey, RESTURL: server.URL})
	if _, err := client.Call(context.Background(), "flickr.photos.getRecent", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestWithToken_SendsAuthToken(t *testing.T) {
	server := mockServer(t, func(form url.Values) {
		if form.Get("auth_token") != "tok-1" {
			t.Errorf("Expected auth_token 'tok-1', got '%s'", form.Get("auth_token"))
		}
	}, 200, `<rsp stat="ok"/>`)
	defer server.Close()

	base := newTestClient(server.URL)
	authed := base.WithToken("tok-1")
	if base.Token() != "" {
		t.Error("Expected base client to stay tokenless")
	}
	if _, err := authed.Call(context.Background(), "flickr.people.getUploadStatus", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestExecute_Compression(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("Expected Accept-Encoding gzip, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		zw.Write([]byte(`<rsp stat="ok"><frob>zipped</frob></rsp>`))
		zw.Close()
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{APIKey: testAPIKey, RESTURL: server.URL, Compression: true})
	rsp, err := client.Call(context.Background(), "flickr.auth.getFrob", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rsp.TextOf("frob") != "zipped" {
		t.Errorf("Expected inflated body, got %s", rsp)
	}
}

func TestExecute_CompressionFallsBackToRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte(`<rsp stat="ok"><frob>plain</frob></rsp>`))
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{APIKey: testAPIKey, RESTURL: server.URL, Compression: true})
	rsp, err := client.Call(context.Background(), "flickr.auth.getFrob", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rsp.TextOf("frob") != "plain" {
		t.Errorf("Expected raw body to be used, got %s", rsp)
	}
}

func TestExecute_CompressionDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "identity" {
			t.Errorf("Expected Accept-Encoding identity, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Write([]byte(`<rsp stat="ok"/>`))
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{APIKey: testAPIKey, RESTURL: server.URL})
	if _, err := client.Call(context.Background(), "flickr.test.null", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestExecute_CachesSuccessfulResponses(t *testing.T) {
	var hits atomic.Int32
	server := mockServer(t, func(url.Values) { hits.Add(1) }, 200, `<rsp stat="ok"><photos page="1" pages="1"/></rsp>`)
	defer server.Close()

	observer := &recordingObserver{}
	client := NewClient(&ClientConfig{
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		RESTURL:   server.URL,
		Cache:     NewMemoryCache(time.Minute, 10),
		Observers: []Observer{observer},
	})

	for i := 0; i < 3; i++ {
		rsp, err := client.Call(context.Background(), "flickr.photos.getRecent", Args{"per_page": "5"})
		if err != nil {
			t.Fatalf("Unexpected error on call %d: %v", i, err)
		}
		if rsp.Child("photos") == nil {
			t.Fatalf("Expected photos element on call %d", i)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("Expected 1 server hit, got %d", hits.Load())
	}
	if len(observer.calls) != 3 {
		t.Fatalf("Expected 3 observed calls, got %d", len(observer.calls))
	}
	if observer.calls[0].Cached || !observer.calls[1].Cached || !observer.calls[2].Cached {
		t.Errorf("Unexpected cache flags %+v", observer.calls)
	}
}

func TestExecute_DoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	server := mockServer(t, func(url.Values) { hits.Add(1) }, 200, `<rsp stat="fail"><err code="105" msg="Service currently unavailable"/></rsp>`)
	defer server.Close()

	cache := NewMemoryCache(time.Minute, 10)
	client := NewClient(&ClientConfig{APIKey: testAPIKey, APISecret: testAPISecret, RESTURL: server.URL, Cache: cache})

	for i := 0; i < 2; i++ {
		if _, err := client.Call(context.Background(), "flickr.photos.getRecent", nil); !IsErrorCode(err, ErrCodeServiceUnavailable) {
			t.Fatalf("Expected error 105, got %v", err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 server hits, got %d", hits.Load())
	}
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", cache.Len())
	}
}

// sequencedServer answers the n-th request with bodies[n], repeating the
// last body once they run out
func sequencedServer(t *testing.T, hits *atomic.Int32, bodies ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
			return
		}
		verifySignature(t, r.PostForm)
		n := int(hits.Add(1)) - 1
		if n >= len(bodies) {
			n = len(bodies) - 1
		}
		w.Write([]byte(bodies[n]))
	}))
}

func TestExecute_AuthCallsBypassCache(t *testing.T) {
	t.Run("getFrob", func(t *testing.T) {
		var hits atomic.Int32
		server := sequencedServer(t, &hits,
			`<rsp stat="ok"><frob>frob-1</frob></rsp>`,
			`<rsp stat="ok"><frob>frob-2</frob></rsp>`)
		defer server.Close()

		cache := NewMemoryCache(time.Minute, 10)
		client := NewClient(&ClientConfig{APIKey: testAPIKey, APISecret: testAPISecret, RESTURL: server.URL, Cache: cache})

		first, err := client.GetFrob(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		second, err := client.GetFrob(context.Background())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if first != "frob-1" || second != "frob-2" {
			t.Errorf("Expected fresh frobs frob-1, frob-2; got %s, %s", first, second)
		}
		if cache.Len() != 0 {
			t.Errorf("Expected empty cache, got %d entries", cache.Len())
		}
	})

	t.Run("checkToken", func(t *testing.T) {
		var hits atomic.Int32
		server := sequencedServer(t, &hits,
			`<rsp stat="ok"><auth><token>tok</token><perms>read</perms><user nsid="1@N01" username="bees"/></auth></rsp>`,
			`<rsp stat="fail"><err code="98" msg="Invalid auth token"/></rsp>`)
		defer server.Close()

		client := NewClient(&ClientConfig{
			APIKey:    testAPIKey,
			APISecret: testAPISecret,
			RESTURL:   server.URL,
			Cache:     NewMemoryCache(time.Minute, 10),
		})

		if _, err := client.CheckToken(context.Background(), "tok"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := client.CheckToken(context.Background(), "tok"); !IsErrorCode(err, ErrCodeLoginFailed) {
			t.Errorf("Expected revoked token to fail with 98, got %v", err)
		}
		if hits.Load() != 2 {
			t.Errorf("Expected 2 server hits, got %d", hits.Load())
		}
	})
}

func TestExecute_UncachedMethods(t *testing.T) {
	var hits atomic.Int32
	server := mockServer(t, func(url.Values) { hits.Add(1) }, 200, `<rsp stat="ok"><photos page="1" pages="1"/></rsp>`)
	defer server.Close()

	client := NewClient(&ClientConfig{
		APIKey:          testAPIKey,
		APISecret:       testAPISecret,
		RESTURL:         server.URL,
		Cache:           NewMemoryCache(time.Minute, 10),
		UncachedMethods: []string{"flickr.photos.getRecent"},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Call(context.Background(), "flickr.photos.getRecent", nil); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := client.Call(context.Background(), "flickr.photos.search", nil); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 server hits (2 uncached, 1 cached), got %d", hits.Load())
	}
}

func TestExecute_NotifiesObservers(t *testing.T) {
	server := mockServer(t, nil, 200, `<rsp stat="fail"><err code="99" msg="Insufficient permissions"/></rsp>`)
	defer server.Close()

	observer := &recordingObserver{}
	client := NewClient(&ClientConfig{
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		RESTURL:   server.URL,
		Observers: []Observer{observer},
	})

	client.Execute(context.Background(), "flickr.photos.delete", Args{"photo_id": "1"})

	if len(observer.calls) != 1 {
		t.Fatalf("Expected 1 observed call, got %d", len(observer.calls))
	}
	call := observer.calls[0]
	if call.Method != "flickr.photos.delete" || call.Outcome != OutcomeFail || call.ErrorCode != 99 {
		t.Errorf("Unexpected call info %+v", call)
	}
	if call.HTTPStatus != 200 {
		t.Errorf("Expected status 200, got %d", call.HTTPStatus)
	}
}

func TestExecute_ConcurrentCalls(t *testing.T) {
	server := mockServer(t, nil, 200, `<rsp stat="ok"/>`)
	defer server.Close()

	client := newTestClient(server.URL)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Call(context.Background(), "flickr.test.null", nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error: %v", err)
	}
}
