// Package search maintains the Meilisearch projection of the review queue.
package search

import (
	"fmt"
	"net/http"
	"time"

	ms "github.com/meilisearch/meilisearch-go"
)

// newSearchClient builds the Meilisearch client shared by the searcher.
// A non-zero timeout bounds every request the client makes.
func newSearchClient(host, key string, timeout time.Duration) ms.ServiceManager {
	opts := []ms.Option{ms.WithAPIKey(key)}
	if timeout > 0 {
		opts = append(opts, ms.WithCustomClient(&http.Client{Timeout: timeout}))
	}
	return ms.New(host, opts...)
}

// FilterStatus builds a filter expression for one review workflow state,
// e.g. `status = "pending"`.
func FilterStatus(status string) string {
	return fmt.Sprintf("status = %q", status)
}
