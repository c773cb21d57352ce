package hirezzie

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"reflect"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is an in-memory Cache with a size bound and a TTL.
type LRUCache struct {
	lru *expirable.LRU[string, any]
}

// NewLRUCache returns a cache holding at most size entries for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 256
	}
	return &LRUCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Key hashes value under prefix so that long queries make short keys.
func (c *LRUCache) Key(prefix, value string) string {
	sum := sha256.Sum256([]byte(value))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}

// Get copies the cached value into dest, which must be a pointer to the
// stored value's type. A type mismatch counts as a miss.
func (c *LRUCache) Get(_ context.Context, key string, dest any) bool {
	v, ok := c.lru.Get(key)
	if !ok {
		return false
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return false
	}
	sv := reflect.ValueOf(v)
	if !sv.Type().AssignableTo(dv.Elem().Type()) {
		return false
	}
	dv.Elem().Set(sv)
	return true
}

func (c *LRUCache) Set(_ context.Context, key string, value any) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}
