// Package cache provides the ordering and caching primitives used by the
// globe surface.
//
// # List[T]
//
// An intrusive doubly linked list ordered from most to least recently used.
// The quadtree replacement queue embeds a Node in every tile so that
// touching a tile is O(1).
//
// # Cache[K, V]
//
// A thread-safe map with a soft limit. When the limit is exceeded the
// oldest quarter is evicted and reported through OnEvict. The render
// package keeps compiled shader programs in one.
package cache
