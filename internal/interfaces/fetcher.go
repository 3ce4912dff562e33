package interfaces

import "context"

// Fetcher is the external render/fetch collaborator: it loads a URL in a
// rendering engine and returns the resulting HTML. Implementations must
// release any per-attempt resource (browser tab, session) before
// returning, success or not.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
	Close() error
}
