// Package pagination retrieves large search result sets page by page.
//
// E-utilities search endpoints accept an offset (retstart) and a page size
// (retmax) and echo both back together with the total number of matching
// records. The runner walks the result set one page at a time:
//
//	runner := pagination.NewRunner(pagination.Config{Size: 100, Interval: 3 * time.Second})
//	result, err := pagination.Run(ctx, runner, searchPage, (*client.Response).SearchMeta)
//
// The runner:
//   - Requests offset = index × size with max = size
//   - Learns the total count from each page's metadata
//   - Treats an echoed offset or page size that differs from the request as a
//     fatal protocol violation
//   - Retries failed pages forever (or up to Config.MaxRetries) with twice the
//     page interval
//   - Stops once the downloaded count reaches the total
//
// Pages are fetched strictly one after another; the remote service throttles
// per client, so parallel page workers would only trip its limits.
package pagination
