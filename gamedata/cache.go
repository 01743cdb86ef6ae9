package gamedata

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rlch/cw"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/schema"
)

// Snapshot is one consistent view of the game data. Snapshots are never
// modified after publication.
type Snapshot struct {
	Index    *Index
	Entities *Restructured
	Analysis *Analysis
	Schema   *schema.Analyzer
}

// Options configure a Cache.
type Options struct {
	Game     *cw.Game
	GamePath string
	ModPaths []string
	Schema   *schema.Analyzer
	Logger   *zap.Logger

	// Loader is shared with callers that parse files themselves. Nil
	// creates one.
	Loader *module.Loader
}

// Cache builds snapshots of the game data and publishes them through a
// write-once cell. Integrating a mod builds a new snapshot and swaps it in.
type Cache struct {
	opts   Options
	log    *zap.Logger
	loader *module.Loader

	// mu serialises rebuilds.
	mu    sync.Mutex
	roots []string

	current Cell[Snapshot]
}

// New returns an unloaded cache.
func New(opts Options) *Cache {
	if opts.Game == nil {
		opts.Game = cw.Stellaris
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	loader := opts.Loader
	if loader == nil {
		loader = module.NewLoader(opts.Game)
	}

	var roots []string
	if opts.GamePath != "" {
		roots = append(roots, opts.GamePath)
	}

	roots = append(roots, opts.ModPaths...)

	return &Cache{
		opts:   opts,
		log:    log.Named("gamedata"),
		loader: loader,
		roots:  roots,
	}
}

// Loader returns the cache's file loader.
func (c *Cache) Loader() *module.Loader { return c.loader }

// Game returns the game profile.
func (c *Cache) Game() *cw.Game { return c.opts.Game }

// Load builds the first snapshot. Concurrent and later calls return the
// same snapshot.
func (c *Cache) Load(ctx context.Context) (*Snapshot, error) {
	return c.current.GetOrInit(func() (*Snapshot, error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		return c.build(ctx, c.roots)
	})
}

// Snapshot returns the current snapshot, or ErrNotInitialized.
func (c *Cache) Snapshot() (*Snapshot, error) { return c.current.Get() }

// WaitReady blocks until a snapshot is published. Exceeding ctx's deadline
// returns ErrInitTimeout.
func (c *Cache) WaitReady(ctx context.Context) (*Snapshot, error) {
	return c.current.WaitReady(ctx)
}

// IntegrateMod adds a mod root and publishes a snapshot that includes it.
func (c *Cache) IntegrateMod(ctx context.Context, root string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	roots := append(slices.Clone(c.roots), root)

	snap, err := c.build(ctx, roots)
	if err != nil {
		return err
	}

	c.roots = roots
	c.current.Set(snap)

	return nil
}

// Refresh drops changed files from the loader cache and publishes a
// rebuilt snapshot.
func (c *Cache) Refresh(ctx context.Context, changed ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range changed {
		c.loader.Invalidate(p)
	}

	snap, err := c.build(ctx, c.roots)
	if err != nil {
		return err
	}

	c.current.Set(snap)

	return nil
}

// Roots returns the game and mod roots, in load order.
func (c *Cache) Roots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.roots)
}

func (c *Cache) build(ctx context.Context, roots []string) (*Snapshot, error) {
	start := time.Now()

	ix, err := BuildIndex(ctx, c.loader, roots, c.log)
	if err != nil {
		return nil, err
	}

	entities := Restructure(ix, c.opts.Schema, c.log)

	analysis, err := Analyze(ctx, c.opts.Schema, entities, c.log)
	if err != nil {
		return nil, err
	}

	c.log.Info("game data ready",
		zap.Strings("roots", roots),
		zap.Duration("took", time.Since(start)),
	)

	return &Snapshot{Index: ix, Entities: entities, Analysis: analysis, Schema: c.opts.Schema}, nil
}

// NewSnapshot builds a snapshot from an index without touching the
// filesystem.
func NewSnapshot(ctx context.Context, ix *Index, s *schema.Analyzer, log *zap.Logger) (*Snapshot, error) {
	entities := Restructure(ix, s, log)

	analysis, err := Analyze(ctx, s, entities, log)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Index: ix, Entities: entities, Analysis: analysis, Schema: s}, nil
}
