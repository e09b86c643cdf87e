// Write-back LRU caches sitting in front of FileList and FileHMap.
// Reads populate the cache; writes mark an entry dirty and defer the
// actual store write until the entry is evicted or Flush is called
// explicitly — there are no finalizers in Go, so callers must Flush
// before dropping a cache, unlike the teacher's __del__-based Python
// original.
package mir

import "container/list"

// ListCodec pairs the encode/decode functions for a value cached by
// CachedList, standing in for the reference implementation's Serde
// protocol (Go has no per-type static dispatch to hang this off an
// interface). Decode receives the int key the same way Serde.deserialize
// receives it, for types like Term whose id is the cache key rather
// than part of the serialized bytes.
type ListCodec[T any] struct {
	Encode func(T) []byte
	Decode func(data []byte, key int) (T, error)
}

// HMapCodec is ListCodec's counterpart for CachedHMap, keyed by string.
type HMapCodec[T any] struct {
	Encode func(T) []byte
	Decode func(data []byte, key string) (T, error)
}

type cacheEntry[T any] struct {
	value T
	dirty bool
}

// CachedList is a write-back LRU cache in front of a FileList.
type CachedList[T any] struct {
	inner     *FileList
	codec     ListCodec[T]
	cacheSize int
	nextKey   int

	order   *list.List // list.Element.Value is an int key, most-recent at Back
	entries map[int]*list.Element
	values  map[int]*cacheEntry[T]
}

// NewCachedList wraps inner with an LRU cache holding at most cacheSize entries.
func NewCachedList[T any](inner *FileList, cacheSize int, codec ListCodec[T]) (*CachedList[T], error) {
	next, err := inner.NextKey()
	if err != nil {
		return nil, err
	}
	return &CachedList[T]{
		inner:     inner,
		codec:     codec,
		cacheSize: cacheSize,
		nextKey:   next,
		order:     list.New(),
		entries:   make(map[int]*list.Element),
		values:    make(map[int]*cacheEntry[T]),
	}, nil
}

func (c *CachedList[T]) touch(key int) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToBack(el)
		return
	}
	c.entries[key] = c.order.PushBack(key)
}

// evictIfNeeded writes back and drops the least-recently-used entry
// once the cache exceeds its configured size.
func (c *CachedList[T]) evictIfNeeded() error {
	for len(c.values) > c.cacheSize {
		front := c.order.Front()
		key := front.Value.(int)
		c.order.Remove(front)
		entry := c.values[key]
		delete(c.values, key)
		delete(c.entries, key)
		if entry.dirty {
			if err := c.inner.Set(key, c.codec.Encode(entry.value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get retrieves the value for key, loading and decoding it from the
// inner FileList on a cache miss.
func (c *CachedList[T]) Get(key int) (T, error) {
	var zero T
	if entry, ok := c.values[key]; ok {
		c.touch(key)
		return entry.value, nil
	}
	raw, ok, err := c.inner.Get(key)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrMissingInfo
	}
	value, err := c.codec.Decode(raw, key)
	if err != nil {
		return zero, err
	}
	c.values[key] = &cacheEntry[T]{value: value}
	c.touch(key)
	if err := c.evictIfNeeded(); err != nil {
		return zero, err
	}
	return value, nil
}

// Set stores value under key, deferring the write to the inner
// FileList until eviction or Flush.
func (c *CachedList[T]) Set(key int, value T) error {
	if key+1 > c.nextKey {
		c.nextKey = key + 1
	}
	if entry, ok := c.values[key]; ok {
		entry.value = value
		entry.dirty = true
		c.touch(key)
		return nil
	}
	c.values[key] = &cacheEntry[T]{value: value, dirty: true}
	c.touch(key)
	return c.evictIfNeeded()
}

// NextKey returns the next unused key, accounting for keys only
// present in the cache and not yet flushed to the inner FileList.
func (c *CachedList[T]) NextKey() int {
	return c.nextKey
}

// Flush writes every dirty cached entry to the inner FileList.
func (c *CachedList[T]) Flush() error {
	for key, entry := range c.values {
		if entry.dirty {
			if err := c.inner.Set(key, c.codec.Encode(entry.value)); err != nil {
				return err
			}
			entry.dirty = false
		}
	}
	return nil
}

// CachedHMap is a write-back LRU cache in front of a FileHMap.
type CachedHMap[T any] struct {
	inner     *FileHMap
	codec     HMapCodec[T]
	cacheSize int

	order   *list.List // list.Element.Value is a string key, most-recent at Back
	entries map[string]*list.Element
	values  map[string]*cacheEntry[T]
}

// NewCachedHMap wraps inner with an LRU cache holding at most cacheSize entries.
func NewCachedHMap[T any](inner *FileHMap, cacheSize int, codec HMapCodec[T]) *CachedHMap[T] {
	return &CachedHMap[T]{
		inner:     inner,
		codec:     codec,
		cacheSize: cacheSize,
		order:     list.New(),
		entries:   make(map[string]*list.Element),
		values:    make(map[string]*cacheEntry[T]),
	}
}

func (c *CachedHMap[T]) touch(key string) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToBack(el)
		return
	}
	c.entries[key] = c.order.PushBack(key)
}

func (c *CachedHMap[T]) evictIfNeeded() error {
	for len(c.values) > c.cacheSize {
		front := c.order.Front()
		key := front.Value.(string)
		c.order.Remove(front)
		entry := c.values[key]
		delete(c.values, key)
		delete(c.entries, key)
		if entry.dirty {
			if err := c.inner.Set(key, c.codec.Encode(entry.value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get retrieves the value for key. ok is false if key is absent from
// both the cache and the inner FileHMap.
func (c *CachedHMap[T]) Get(key string) (value T, ok bool, err error) {
	if entry, found := c.values[key]; found {
		c.touch(key)
		return entry.value, true, nil
	}
	raw, found, err := c.inner.Get(key)
	if err != nil || !found {
		return value, false, err
	}
	value, err = c.codec.Decode(raw, key)
	if err != nil {
		return value, false, err
	}
	c.values[key] = &cacheEntry[T]{value: value}
	c.touch(key)
	if err := c.evictIfNeeded(); err != nil {
		return value, false, err
	}
	return value, true, nil
}

// Set stores value under key, deferring the write to the inner
// FileHMap until eviction or Flush.
func (c *CachedHMap[T]) Set(key string, value T) error {
	if entry, ok := c.values[key]; ok {
		entry.value = value
		entry.dirty = true
		c.touch(key)
		return nil
	}
	c.values[key] = &cacheEntry[T]{value: value, dirty: true}
	c.touch(key)
	return c.evictIfNeeded()
}

// Delete removes key from both the cache and the inner FileHMap.
func (c *CachedHMap[T]) Delete(key string) error {
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
		delete(c.values, key)
	}
	return c.inner.Delete(key)
}

// Flush writes every dirty cached entry to the inner FileHMap.
func (c *CachedHMap[T]) Flush() error {
	for key, entry := range c.values {
		if entry.dirty {
			if err := c.inner.Set(key, c.codec.Encode(entry.value)); err != nil {
				return err
			}
			entry.dirty = false
		}
	}
	return nil
}
