package pagination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
)

// fakeLister serves pageCount pages of perPage items using start offsets.
type fakeLister struct {
	pageCount int
	perPage   int
	failAt    int
	calls     []map[string]string
}

func (f *fakeLister) List(ctx context.Context, endpoint string, params *Params) (*Page, error) {
	f.calls = append(f.calls, params.Map())
	call := len(f.calls)
	if f.failAt > 0 && call == f.failAt {
		return nil, errors.New("connection reset")
	}

	start := 0
	if s, ok := params.Get("start"); ok {
		start, _ = strconv.Atoi(s)
	}
	pageIdx := start / f.perPage

	page := &Page{Start: start, Limit: f.perPage}
	if pageIdx >= f.pageCount {
		return page, nil
	}
	for i := 0; i < f.perPage; i++ {
		page.Results = append(page.Results, Item{"id": strconv.Itoa(start + i)})
	}
	page.Size = len(page.Results)
	if pageIdx+1 < f.pageCount {
		page.Links.Next = fmt.Sprintf("%s?next=true&limit=%d&start=%d", endpoint, f.perPage, start+f.perPage)
	}
	return page, nil
}

func TestFetchAll_ReturnsAllItemsInOrder(t *testing.T) {
	tests := []struct {
		pages   int
		perPage int
	}{
		{1, 1},
		{1, 5},
		{3, 4},
		{7, 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.pages, tt.perPage), func(t *testing.T) {
			lister := &fakeLister{pageCount: tt.pages, perPage: tt.perPage}
			f := NewFetcher(lister, DefaultConfig())

			items, err := f.FetchAll(context.Background(), "/content", NewParams().SetInt("start", 0).SetInt("limit", tt.perPage))
			if err != nil {
				t.Fatalf("FetchAll() error = %v", err)
			}
			if len(items) != tt.pages*tt.perPage {
				t.Fatalf("len(items) = %d, want %d", len(items), tt.pages*tt.perPage)
			}
			for i, item := range items {
				if item.ID() != strconv.Itoa(i) {
					t.Errorf("items[%d].ID() = %q, want %q", i, item.ID(), strconv.Itoa(i))
				}
			}
			if len(lister.calls) != tt.pages {
				t.Errorf("listing calls = %d, want %d", len(lister.calls), tt.pages)
			}
		})
	}
}

func TestFetchAll_CarriesParametersForward(t *testing.T) {
	lister := &fakeLister{pageCount: 2, perPage: 1}
	f := NewFetcher(lister, DefaultConfig())
	initial := NewParams().SetInt("start", 0).Set("expand", "a,b").Set("status", "current")

	if _, err := f.FetchAll(context.Background(), "/space", initial); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	second := lister.calls[1]
	if second["expand"] != "a,b" || second["status"] != "current" || second["start"] != "1" {
		t.Errorf("second call params = %v", second)
	}
	if _, ok := second["next"]; ok {
		t.Error("ignored key next leaked into params")
	}
	if v, _ := initial.Get("start"); v != "0" {
		t.Errorf("initial start = %q, want unchanged %q", v, "0")
	}
}

func TestFetchAll_EmptyFirstPage(t *testing.T) {
	lister := &fakeLister{pageCount: 0, perPage: 10}
	f := NewFetcher(lister, DefaultConfig())

	items, err := f.FetchAll(context.Background(), "/content", nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestFetchAll_ListingErrorIsFatal(t *testing.T) {
	lister := &fakeLister{pageCount: 5, perPage: 2, failAt: 3}
	f := NewFetcher(lister, DefaultConfig())

	items, err := f.FetchAll(context.Background(), "/content", NewParams().SetInt("start", 0))
	if err == nil {
		t.Fatal("FetchAll() error = nil, want error")
	}
	if items != nil {
		t.Errorf("items = %v, want nil", items)
	}
	if len(lister.calls) != 3 {
		t.Errorf("listing calls = %d, want 3 (no retry)", len(lister.calls))
	}
}

type staticLister struct {
	page *Page
}

func (s staticLister) List(context.Context, string, *Params) (*Page, error) {
	return s.page, nil
}

func TestFetchAll_MalformedContinuation(t *testing.T) {
	f := NewFetcher(staticLister{page: &Page{Links: Links{Next: "/x?start=%zz"}}}, DefaultConfig())
	if _, err := f.FetchAll(context.Background(), "/x", nil); err == nil {
		t.Error("FetchAll() error = nil, want continuation error")
	}
}
