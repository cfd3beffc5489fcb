// Package pagination computes the page window shown to the user and fetches
// complete result sets for client-side global ordering.
//
// Present derives the "showing X-Y of N" counters:
//
//	w := pagination.Present(2, 12, 15) // {From: 13, To: 15}
//
// BatchFetcher walks every page of a filtered result set with a small worker
// pool:
//
//	fetcher := pagination.NewBatchFetcher(apiClient, pagination.DefaultConfig())
//	all, err := fetcher.FetchAll(ctx, filter)
//
// The batch fetcher:
//   - Fetches the first page to learn the page count
//   - Distributes the remaining pages across workers
//   - Reassembles pages in server order
//   - Fails the whole call if any page fails
package pagination
