package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// PagerServer is a fake pager service. It records every page body it
// receives and can be told to fail or reject upcoming requests, which lets
// tests exercise the retry-at-head queue semantics.
type PagerServer struct {
	srv *httptest.Server

	mu        sync.Mutex
	pages     []string
	failNext  int // respond 503 to this many upcoming /page requests
	rejectAll bool
	shutdowns int
}

// NewPagerServer starts a fake pager HTTP service
func NewPagerServer(tb testing.TB) *PagerServer {
	tb.Helper()

	p := &PagerServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/page", p.handlePage)
	mux.HandleFunc("/shutdown", p.handleShutdown)
	p.srv = httptest.NewServer(mux)
	tb.Cleanup(p.srv.Close)
	return p
}

// URL returns the base URL of the fake pager
func (p *PagerServer) URL() string {
	return p.srv.URL
}

// Pages returns the bodies of all successfully accepted page requests
func (p *PagerServer) Pages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.pages))
	copy(out, p.pages)
	return out
}

// Shutdowns returns how many /shutdown requests were received
func (p *PagerServer) Shutdowns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdowns
}

// FailNext makes the next n /page requests fail with 503
func (p *PagerServer) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

// RejectAll makes every /page request fail with 400
func (p *PagerServer) RejectAll(reject bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectAll = reject
}

func (p *PagerServer) handlePage(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rejectAll {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if p.failNext > 0 {
		p.failNext--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	p.pages = append(p.pages, string(body))
	w.WriteHeader(http.StatusOK)
}

// handleShutdown accepts only GET, matching the real paging service.
func (p *PagerServer) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p.mu.Lock()
	p.shutdowns++
	p.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}
