package kinematics

import "github.com/go-gl/mathgl/mgl64"

type transformKey struct {
	from, to int
}

// transformCache memoizes composed transforms. Any theta change drops every entry, since a
// composed transform depends on each row it spans.
type transformCache struct {
	entries map[transformKey]mgl64.Mat4
	hits    int
	misses  int
}

func newTransformCache() *transformCache {
	return &transformCache{entries: map[transformKey]mgl64.Mat4{}}
}

func (c *transformCache) get(from, to int) (mgl64.Mat4, bool) {
	m, ok := c.entries[transformKey{from, to}]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return m, ok
}

func (c *transformCache) put(from, to int, m mgl64.Mat4) {
	c.entries[transformKey{from, to}] = m
}

func (c *transformCache) invalidate() {
	clear(c.entries)
}

func (c *transformCache) len() int {
	return len(c.entries)
}
