package outputstore

import "context"

// OutputStore records the named outputs of a stack, e.g. the signed package
// URL handed to a web app.
type OutputStore interface {
	// Put records value as the named output of stack, replacing any previous
	// value.
	Put(ctx context.Context, stack string, name string, value string) error
	// Get returns the named output of stack. Returns [store.ErrNotFound] if the
	// output has not been recorded.
	Get(ctx context.Context, stack string, name string) (string, error)
	// List returns every recorded output of stack keyed by name.
	List(ctx context.Context, stack string) (map[string]string, error)
}
