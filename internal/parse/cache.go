package parse

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/roach88/qmodel/internal/chain"
	"github.com/roach88/qmodel/internal/model"
)

// DefaultCacheSize is the number of models a Cache keeps.
const DefaultCacheSize = 128

// Cache memoizes parsed models by chain text. Callers always receive a
// clone, so they may mutate what they get.
type Cache struct {
	mu     sync.Mutex
	parser *Parser
	models *lru.Cache[string, *model.QueryModel]
}

// NewCache creates a cache of size models over p. p must not be used
// elsewhere while the cache is in use.
func NewCache(p *Parser, size int) (*Cache, error) {
	models, err := lru.New[string, *model.QueryModel](size)
	if err != nil {
		return nil, fmt.Errorf("create parse cache: %w", err)
	}
	return &Cache{parser: p, models: models}, nil
}

// Parse returns a clone of the cached model for root, parsing it on a
// miss. Failed parses are not cached.
func (c *Cache) Parse(root chain.Node) (*model.QueryModel, error) {
	key := cacheKey(root)

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models.Get(key); ok {
		return m.Clone(), nil
	}
	m, err := c.parser.Parse(root)
	if err != nil {
		return nil, err
	}
	c.models.Add(key, m)
	return m.Clone(), nil
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	return c.models.Len()
}

// cacheKey distinguishes chains with the same text but different result
// types.
func cacheKey(root chain.Node) string {
	if call, ok := root.(*chain.Call); ok && call.ReturnType != nil {
		return root.Text() + " : " + call.ReturnType.String()
	}
	return root.Text()
}
