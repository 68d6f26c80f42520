package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type hospital struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", Options{Token: "tok-1", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New("ftp://example.com", Options{}); err == nil {
		t.Error("expected error for non-http scheme")
	}
	if _, err := New("://bad", Options{}); err == nil {
		t.Error("expected error for unparsable url")
	}
}

func TestList_SendsQueryAndDecodesPagination(t *testing.T) {
	var gotQuery url.Values
	var gotHeader http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hospitals" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"hospitals":[{"_id":"h1","name":"City General"}],"pagination":{"current":2,"pages":3,"total":25}}`)
	})

	params := url.Values{"page": {"2"}, "limit": {"10"}, "status": {"active"}}
	items, meta, err := List[hospital](context.Background(), c, "/hospitals", params, "hospitals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Name != "City General" {
		t.Errorf("unexpected items %+v", items)
	}
	if meta.Current != 2 || meta.Pages != 3 || meta.Total != 25 {
		t.Errorf("unexpected meta %+v", meta)
	}
	if gotQuery.Get("status") != "active" || gotQuery.Get("page") != "2" {
		t.Errorf("unexpected query %v", gotQuery)
	}
	if gotHeader.Get("Authorization") != "Bearer tok-1" {
		t.Errorf("expected bearer token, got %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get(RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestList_NestedDataEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"hospitals":[{"_id":"h1"},{"_id":"h2"}],"pagination":{"current":1,"pages":1,"total":2}}}`)
	})

	items, meta, err := List[hospital](context.Background(), c, "hospitals", nil, "hospitals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
	if meta.Total != 2 {
		t.Errorf("expected total 2, got %d", meta.Total)
	}
}

func TestList_DataArrayWithoutPagination(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"_id":"h1"}]}`)
	})

	items, meta, err := List[hospital](context.Background(), c, "hospitals", nil, "hospitals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || meta.Pages != 1 || meta.Total != 1 {
		t.Errorf("unexpected result %+v %+v", items, meta)
	}
}

func TestList_MissingArray(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"pagination":{"current":1,"pages":1,"total":0}}`)
	})

	if _, _, err := List[hospital](context.Background(), c, "hospitals", nil, "hospitals"); err == nil {
		t.Error("expected error when the item array is missing")
	}
}

func TestDo_NonSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"Hospital not found"}`)
	})

	_, err := Get[hospital](context.Background(), c, "/hospitals/nope", "hospital")
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if te.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", te.StatusCode)
	}
	if te.Message != "Hospital not found" {
		t.Errorf("expected backend message, got %q", te.Message)
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound")
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(srv.URL, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.Delete(context.Background(), "/hospitals/h1")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != 0 || te.Err == nil {
		t.Errorf("expected wrapped network error, got %+v", te)
	}
}

func TestDo_Timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.http = &http.Client{Timeout: 20 * time.Millisecond}

	_, err := Get[hospital](context.Background(), c, "/hospitals/h1", "hospital")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !te.Timeout() {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestCreate_SendsJSONBody(t *testing.T) {
	var got map[string]string
	var method string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"message":"created","hospital":{"_id":"h9","name":"St. Mary"}}`)
	})

	h, err := Create[hospital](context.Background(), c, "/hospitals", "hospital", map[string]string{"name": "St. Mary"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("expected POST, got %s", method)
	}
	if got["name"] != "St. Mary" {
		t.Errorf("unexpected body %v", got)
	}
	if h.ID != "h9" {
		t.Errorf("expected created id h9, got %q", h.ID)
	}
}

func TestUpdate_BareBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		io.WriteString(w, `{"_id":"h1","name":"Renamed"}`)
	})

	h, err := Update[hospital](context.Background(), c, "/hospitals/h1", "hospital", hospital{Name: "Renamed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Name != "Renamed" {
		t.Errorf("expected Renamed, got %q", h.Name)
	}
}

func TestWrite_EmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	h, err := Patch[hospital](context.Background(), c, "/hospitals/h1", "hospital", map[string]string{"status": "inactive"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != nil {
		t.Errorf("expected nil record for empty body, got %+v", h)
	}
}

func TestGet_SharesIdenticalInFlightRequests(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		io.WriteString(w, `{"hospitals":[],"pagination":{"current":1,"pages":0,"total":0}}`)
	})

	params := url.Values{"page": {"1"}, "limit": {"10"}}
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := List[hospital](context.Background(), c, "/hospitals", params, "hospitals"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 backend hit, got %d", got)
	}
}

func TestGet_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Get[hospital](ctx, c, "/hospitals/h1", "hospital")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}
}

func TestGet_AbortsRequestWhenLastCallerLeaves(t *testing.T) {
	arrived := make(chan struct{}, 2)
	aborted := make(chan struct{}, 2)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		select {
		case <-r.Context().Done():
			aborted <- struct{}{}
		case <-time.After(2 * time.Second):
		}
	})

	params := url.Values{"page": {"1"}, "limit": {"10"}}
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	done := make(chan error, 2)
	for _, ctx := range []context.Context{ctx1, ctx2} {
		ctx := ctx
		go func() {
			_, _, err := List[hospital](ctx, c, "/hospitals", params, "hospitals")
			done <- err
		}()
	}
	<-arrived
	time.Sleep(50 * time.Millisecond)

	cancel1()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	select {
	case <-aborted:
		t.Fatal("request aborted while a caller was still waiting")
	case <-time.After(50 * time.Millisecond):
	}

	cancel2()
	<-done
	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("backend request kept running after every caller left")
	}
}

func TestGet_CancelledFlightDoesNotBlockNextCaller(t *testing.T) {
	var hits atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		io.WriteString(w, `{"hospitals":[{"_id":"h1","name":"City General"}],"pagination":{"current":1,"pages":1,"total":1}}`)
	})

	params := url.Values{"page": {"1"}, "limit": {"10"}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := List[hospital](ctx, c, "/hospitals", params, "hospitals")
		done <- err
	}()
	for hits.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	items, _, err := List[hospital](context.Background(), c, "/hospitals", params, "hospitals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected fresh result, got %+v", items)
	}
}

func TestWithToken(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		io.WriteString(w, `{}`)
	})

	if _, err := Get[hospital](context.Background(), c.WithToken("user-token"), "/hospitals/h1", "hospital"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer user-token" {
		t.Errorf("expected user token, got %q", auth)
	}
}

func TestContextWithRequestID(t *testing.T) {
	var rid string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rid = r.Header.Get(RequestIDHeader)
		io.WriteString(w, `{}`)
	})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	if _, err := Get[hospital](ctx, c, "/hospitals/h1", "hospital"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rid != "req-42" {
		t.Errorf("expected propagated request id, got %q", rid)
	}
}

func TestRateLimit(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})
	limited, err := New(c.BaseURL(), Options{RateLimit: 1, Burst: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := Get[hospital](context.Background(), limited, "/a", "hospital"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := Get[hospital](ctx, limited, "/b", "hospital"); err == nil {
		t.Error("expected second request to be throttled past the deadline")
	}
}
