package patterns

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vibecope/vibecope/internal/locale"
)

// Cache owns the current Compiled snapshot.
//
// Get and Recompile are safe for concurrent use. Recompile builds a new snapshot
// and publishes it with a single atomic store; callers holding the previous
// snapshot keep using it until they call Get again.
type Cache struct {
	compiler *Compiler
	current  atomic.Pointer[Compiled]
	initMu   sync.Mutex
}

// NewCache creates an empty cache. Nothing is compiled until Get or Recompile.
func NewCache(compiler *Compiler) *Cache {
	return &Cache{compiler: compiler}
}

// Get returns the current snapshot, compiling the default locale set on first use.
func (c *Cache) Get() *Compiled {
	if p := c.current.Load(); p != nil {
		return p
	}

	c.initMu.Lock()
	defer c.initMu.Unlock()
	if p := c.current.Load(); p != nil {
		return p
	}
	return c.publishDefault(c.compiler.Compile(locale.DefaultEnabled))
}

// publishDefault installs the lazily compiled default snapshot unless a
// Recompile got there first, and returns whichever is current.
func (c *Cache) publishDefault(p *Compiled) *Compiled {
	if c.current.CompareAndSwap(nil, p) {
		return p
	}
	return c.current.Load()
}

// Recompile compiles ids and makes the result current.
func (c *Cache) Recompile(ids []string) *Compiled {
	p := c.compiler.Compile(slices.Clone(ids))
	c.current.Store(p)
	if c.compiler.metrics != nil {
		c.compiler.metrics.RecordRecompile()
	}
	return p
}

// Compiler returns the compiler backing the cache.
func (c *Cache) Compiler() *Compiler {
	return c.compiler
}
