package oracle

import "context"

// Client is the text-generation oracle. Implementations may be slow,
// may fail, and may return text that does not conform to any requested
// structure; callers must always have a non-oracle fallback path.
type Client interface {
	// Generate sends a generation request and returns the completion.
	Generate(ctx context.Context, req Request) (*Response, error)
	// Name returns the name of the backing provider.
	Name() string
}
