package outputstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/query"

	"github.com/storacha/sasurl/pkg/store"
)

const outputsPrefix = "outputs/"

type DsOutputStore struct {
	data datastore.Datastore
}

var _ OutputStore = (*DsOutputStore)(nil)

func NewDsOutputStore(ds datastore.Datastore) *DsOutputStore {
	return &DsOutputStore{namespace.Wrap(ds, datastore.NewKey(outputsPrefix))}
}

func (d *DsOutputStore) Put(ctx context.Context, stack string, name string, value string) error {
	key, err := outputKey(stack, name)
	if err != nil {
		return err
	}
	if err := d.data.Put(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("writing output %s: %w", key, err)
	}
	return nil
}

func (d *DsOutputStore) Get(ctx context.Context, stack string, name string) (string, error) {
	key, err := outputKey(stack, name)
	if err != nil {
		return "", err
	}
	b, err := d.data.Get(ctx, key)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("reading output %s: %w", key, err)
	}
	return string(b), nil
}

func (d *DsOutputStore) List(ctx context.Context, stack string) (map[string]string, error) {
	if err := checkSegment("stack", stack); err != nil {
		return nil, err
	}
	stackKey := datastore.NewKey(stack)
	results, err := d.data.Query(ctx, query.Query{Prefix: stackKey.String()})
	if err != nil {
		return nil, fmt.Errorf("querying outputs: %w", err)
	}
	entries, err := results.Rest()
	if err != nil {
		return nil, fmt.Errorf("reading outputs: %w", err)
	}

	outputs := map[string]string{}
	for _, e := range entries {
		k := datastore.RawKey(e.Key)
		if !k.Parent().Equal(stackKey) {
			continue
		}
		outputs[k.BaseNamespace()] = string(e.Value)
	}
	return outputs, nil
}

func outputKey(stack string, name string) (datastore.Key, error) {
	if err := checkSegment("stack", stack); err != nil {
		return datastore.Key{}, err
	}
	if err := checkSegment("output name", name); err != nil {
		return datastore.Key{}, err
	}
	return datastore.NewKey(stack).ChildString(name), nil
}

func checkSegment(kind string, s string) error {
	if s == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if strings.Contains(s, "/") {
		return fmt.Errorf("%s %q must not contain '/'", kind, s)
	}
	// keys are path cleaned, so dot segments would leave the stack namespace
	if s == "." || s == ".." {
		return fmt.Errorf("%s %q is not a valid name", kind, s)
	}
	return nil
}
