package decision

import (
	"context"
	"encoding/json"

	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache"
)

// getSet loads and decodes one cached pattern set.
func getSet(ctx context.Context, c aclcache.Client, key string) ([]string, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var patterns []string
	if err := json.Unmarshal(raw, &patterns); err != nil {
		return nil, false, err
	}
	return patterns, true, nil
}

// Meta returns the metadata record of the last successful rebuild, when
// present and not expired.
func (r *Reader) Meta(ctx context.Context) (domain.CompileMeta, bool, error) {
	raw, ok, err := r.cache.Get(ctx, aclcache.MetaKey)
	if err != nil || !ok {
		return domain.CompileMeta{}, false, err
	}
	var meta domain.CompileMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.CompileMeta{}, false, err
	}
	return meta, true, nil
}
