package search

import (
	"slices"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds recent results by query key. A nil *Cache is a disabled cache.
type Cache struct {
	lru *expirable.LRU[string, []product.Product]
}

// NewCache returns nil when size is not positive.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, []product.Product](size, nil, ttl)}
}

func (c *Cache) Get(key string) ([]product.Product, bool) {
	if c == nil {
		return nil, false
	}
	products, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(products), true
}

func (c *Cache) Add(key string, products []product.Product) {
	if c == nil {
		return
	}
	c.lru.Add(key, slices.Clone(products))
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
