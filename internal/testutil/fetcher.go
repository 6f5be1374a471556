package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsup-go/internal/whatsup"
)

// FakeResponse is what FakeFetcher returns for one address.
type FakeResponse struct {
	Content []byte
	Err     error
	Delay   time.Duration // how long Fetch blocks before answering
}

// FakeFetcher serves canned responses per address and records how many
// fetches ran at the same time. Unknown addresses fail. Safe for concurrent use.
type FakeFetcher struct {
	mu          sync.Mutex
	responses   map[string]FakeResponse
	calls       map[string]int
	inFlight    int
	maxInFlight int
	gate        chan struct{}
}

var _ whatsup.Fetcher = (*FakeFetcher)(nil)

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		responses: make(map[string]FakeResponse),
		calls:     make(map[string]int),
	}
}

// Serve sets the content returned for address.
func (f *FakeFetcher) Serve(address string, content string) {
	f.Respond(address, FakeResponse{Content: []byte(content)})
}

// Respond sets the full response for address.
func (f *FakeFetcher) Respond(address string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[address] = resp
}

// Hold makes every Fetch block until the returned release func is called
// (or the fetch context ends).
func (f *FakeFetcher) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *FakeFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	f.mu.Lock()
	f.calls[address]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	resp, ok := f.responses[address]
	gate := f.gate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		return nil, fmt.Errorf("no response configured for %s", address)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Content, nil
}

// Calls returns how many times address was fetched.
func (f *FakeFetcher) Calls(address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[address]
}

// TotalCalls returns the number of fetches across all addresses.
func (f *FakeFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// MaxInFlight returns the highest number of concurrent fetches observed.
func (f *FakeFetcher) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}
