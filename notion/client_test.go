package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{
		WithBaseURL(srv.URL),
		WithRateLimit(rate.Inf, 1),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewClient("secret-token", append(base, opts...)...)
}

func pageJSON(id, title string) string {
	return fmt.Sprintf(`{"id":%q,"last_edited_time":"2024-01-01T00:00:00Z","properties":{"Title":{"id":"title","type":"title","title":[{"type":"text","plain_text":%q}]}}}`, id, title)
}

func TestQueryDatabaseFollowsCursors(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/databases/db1/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != DefaultVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if req.Filter == nil || req.Filter.Property != "Status" || req.Filter.Select.Equals != "Publish" {
			t.Errorf("unexpected filter: %+v", req.Filter)
		}
		switch req.StartCursor {
		case "":
			fmt.Fprintf(w, `{"results":[%s,%s],"has_more":true,"next_cursor":"c2"}`, pageJSON("p1", "One"), pageJSON("p2", "Two"))
		case "c2":
			fmt.Fprintf(w, `{"results":[%s],"has_more":false,"next_cursor":null}`, pageJSON("p3", "Three"))
		default:
			t.Errorf("unexpected cursor %q", req.StartCursor)
		}
	})
	c := newTestClient(t, h)

	pages, err := c.QueryDatabase(context.Background(), "db1", Query{
		Filter: &Filter{Property: "Status", Select: &Condition{Equals: "Publish"}},
		Sorts:  []Sort{{Property: "Date", Direction: "descending"}},
	})
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if pages[i].ID != want {
			t.Errorf("pages[%d].ID = %q, want %q", i, pages[i].ID, want)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestQueryDatabaseStopsAtMaxResults(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		fmt.Fprintf(w, `{"results":[%s,%s],"has_more":true,"next_cursor":"c%d"}`,
			pageJSON(fmt.Sprintf("a%d", n), "A"), pageJSON(fmt.Sprintf("b%d", n), "B"), n)
	})
	c := newTestClient(t, h, WithMaxResults(3))

	pages, err := c.QueryDatabase(context.Background(), "db1", Query{})
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestMaxResultsBoundsFinalPage(t *testing.T) {
	tests := []struct {
		name    string
		results int
		want    int
	}{
		{"over the bound", 4, 3},
		{"at the bound", 3, 3},
		{"under the bound", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				items := make([]string, tt.results)
				for i := range items {
					if strings.HasPrefix(r.URL.Path, "/blocks/") {
						items[i] = fmt.Sprintf(`{"id":"b%d","type":"divider","divider":{}}`, i)
					} else {
						items[i] = pageJSON(fmt.Sprintf("p%d", i), "P")
					}
				}
				fmt.Fprintf(w, `{"results":[%s],"has_more":false,"next_cursor":null}`, strings.Join(items, ","))
			})
			c := newTestClient(t, h, WithMaxResults(3))

			pages, err := c.QueryDatabase(context.Background(), "db1", Query{})
			if err != nil {
				t.Fatalf("QueryDatabase: %v", err)
			}
			if len(pages) != tt.want {
				t.Errorf("QueryDatabase returned %d pages, want %d", len(pages), tt.want)
			}
			blocks, err := c.BlockChildren(context.Background(), "page")
			if err != nil {
				t.Fatalf("BlockChildren: %v", err)
			}
			if len(blocks) != tt.want {
				t.Errorf("BlockChildren returned %d blocks, want %d", len(blocks), tt.want)
			}
		})
	}
}

func TestRateLimitedThenSuccess(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`)
			return
		}
		fmt.Fprintf(w, `{"results":[%s],"has_more":false}`, pageJSON("p1", "Hello"))
	})
	c := newTestClient(t, h)

	pages, err := c.QueryDatabase(context.Background(), "db1", Query{})
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != "p1" {
		t.Fatalf("unexpected result: %+v", pages)
	}
	if int(calls) > c.retry.Attempts() {
		t.Errorf("attempts %d exceed budget %d", calls, c.retry.Attempts())
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code":"unauthorized","message":"API token is invalid."}`)
	})
	c := newTestClient(t, h)

	_, err := c.QueryDatabase(context.Background(), "db1", Query{})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "unauthorized" {
		t.Errorf("expected APIError with code, got %#v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestServerErrorsExhaustToUnavailable(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, h)

	_, err := c.Page(context.Background(), "p1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
}

func TestRateLimitExhaustionEscalates(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(t, h)

	_, err := c.Page(context.Background(), "p1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected cause ErrRateLimited to be kept, got %v", err)
	}
}

func TestTimeoutIsRetried(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		fmt.Fprint(w, pageJSON("p1", "Hello"))
	})
	c := newTestClient(t, h, WithTimeout(50*time.Millisecond))

	p, err := c.Page(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if p.ID != "p1" {
		t.Errorf("ID = %q", p.ID)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestNotFound(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"object_not_found","message":"Could not find page"}`)
	})
	c := newTestClient(t, h)
	if _, err := c.Page(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBlockTreeResolvesNestedChildren(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		cursor := r.URL.Query().Get("start_cursor")
		switch {
		case r.URL.Path == "/blocks/page/children" && cursor == "":
			fmt.Fprint(w, `{"results":[
				{"id":"b1","type":"paragraph","has_children":false,"paragraph":{"rich_text":[{"type":"text","plain_text":"first"}]}},
				{"id":"b2","type":"bulleted_list_item","has_children":true,"bulleted_list_item":{"rich_text":[{"type":"text","plain_text":"parent"}]}}
			],"has_more":true,"next_cursor":"n1"}`)
		case r.URL.Path == "/blocks/page/children" && cursor == "n1":
			fmt.Fprint(w, `{"results":[{"id":"b3","type":"divider","has_children":false,"divider":{}}],"has_more":false}`)
		case r.URL.Path == "/blocks/b2/children":
			fmt.Fprint(w, `{"results":[{"id":"b2a","type":"bulleted_list_item","has_children":false,"bulleted_list_item":{"rich_text":[{"type":"text","plain_text":"child"}]}}],"has_more":false}`)
		default:
			t.Errorf("unexpected request %s", r.URL.String())
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := newTestClient(t, h)

	blocks, err := c.BlockTree(context.Background(), "page")
	if err != nil {
		t.Fatalf("BlockTree: %v", err)
	}
	var ids []string
	for _, b := range blocks {
		ids = append(ids, b.ID)
	}
	if strings.Join(ids, ",") != "b1,b2,b3" {
		t.Fatalf("unexpected order: %v", ids)
	}
	if len(blocks[1].Children) != 1 || blocks[1].Children[0].ID != "b2a" {
		t.Fatalf("nested children not resolved: %+v", blocks[1].Children)
	}
	text, ok := blocks[1].Children[0].Payload.(TextPayload)
	if !ok || PlainText(text.RichText) != "child" {
		t.Errorf("unexpected child payload: %#v", blocks[1].Children[0].Payload)
	}
}

func TestCancelledContextStopsRetries(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, h, WithRetryPolicy(RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.Page(ctx, "p1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"abc", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
