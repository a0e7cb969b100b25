/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package wire

import (
	"container/list"
	"sync"
)

// keyCache is a bounded LRU mapping a raw field/key name to its already
// JSON-escaped form. Log field names repeat across records (the same
// handful of keys appear on every line of a given logger) so caching the
// escape pass avoids re-walking identical strings byte-by-byte for the
// lifetime of a Serializer.
type keyCache struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List
	items map[string]*list.Element
}

type keyCacheEntry struct {
	key, escaped string
}

func newKeyCache(capacity int) *keyCache {
	return &keyCache{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
	}
}

func (c *keyCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*keyCacheEntry).escaped, true
}

func (c *keyCache) put(key, escaped string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*keyCacheEntry).escaped = escaped
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&keyCacheEntry{key: key, escaped: escaped})
	c.items[key] = el
	if c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*keyCacheEntry).key)
		}
	}
}
