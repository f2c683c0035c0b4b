// Package pagination walks cursor-paginated listing endpoints.
//
// A listing response carries a page of results and, while more data is
// available, a continuation link in _links.next. The fetcher requests the
// first page with the caller's parameters, then merges the continuation's
// query into those parameters and repeats until no link is returned.
//
// Example usage:
//
//	params := pagination.NewParams().
//		SetInt("start", 0).
//		SetInt("limit", 100).
//		Set("expand", "history")
//	fetcher := pagination.NewFetcher(apiClient, pagination.Config{
//		IgnoreKeys: []string{"next", "status"},
//	})
//	items, err := fetcher.FetchAll(ctx, "/wiki/rest/api/space", params)
//
// Merging rules:
//   - a continuation key replaces the current value, it is never appended
//   - repeated continuation keys are joined with ","
//   - ignored keys and keys with blank values are skipped
//   - parameters absent from the continuation are carried over unchanged
package pagination
