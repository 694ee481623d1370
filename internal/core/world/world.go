// Package world implements the fixed-timestep scheduler driving one
// simulation instance. It owns the system list and the entity registry
// and advances both in lockstep: deterministic fixed-rate gameplay steps
// decoupled from the variable-rate, render-facing phases.
package world

import (
	"context"
	"fmt"
	"time"

	"github.com/driftsync/driftsync/internal/core/entity"
	"github.com/driftsync/driftsync/internal/core/events"
	"github.com/driftsync/driftsync/internal/core/observability/log"
)

// Config controls the timestep.
type Config struct {
	// FixedDeltaTime is the deterministic gameplay/physics step, seconds.
	FixedDeltaTime float64
	// MaxDeltaTime clamps one frame's elapsed time so a stall (e.g. a
	// backgrounded tab or a paused process) cannot trigger a spiral of
	// death of catch-up steps.
	MaxDeltaTime float64
}

// DefaultConfig steps gameplay at 30 Hz and tolerates stalls up to 250 ms.
func DefaultConfig() Config {
	return Config{
		FixedDeltaTime: 1.0 / 30.0,
		MaxDeltaTime:   0.25,
	}
}

type registered struct {
	name   string
	system System
	state  State
}

// World owns the authoritative list of systems and entities for one
// simulation instance. Single-threaded cooperative: Tick is the only
// driver and is called once per frame by an external owner.
type World struct {
	config Config
	ctx    *Context
	logger log.Log

	systems map[string]*registered
	order   []string // registration order
	initOrd []string // topological init order, set by Init

	hot []HotObject

	accumulator float64
	lastTime    float64
	ticked      bool

	initialized bool
	started     bool
	destroyed   bool
}

// New creates a world with its own entity registry and event bus.
func New(config Config, logger log.Log) *World {
	if config.FixedDeltaTime <= 0 {
		config.FixedDeltaTime = DefaultConfig().FixedDeltaTime
	}
	if config.MaxDeltaTime <= 0 {
		config.MaxDeltaTime = DefaultConfig().MaxDeltaTime
	}

	wlog := logger.With(log.String("module", "world"))
	bus := events.NewBus()
	return &World{
		config: config,
		logger: wlog,
		ctx: &Context{
			Logger:    logger,
			Entities:  entity.NewRegistry(logger, bus),
			Events:    bus,
			resources: make(map[string]any),
		},
		systems: make(map[string]*registered),
	}
}

// Context returns the dependency bundle shared by all systems.
func (w *World) Context() *Context { return w.ctx }

// Entities returns the entity registry owned by this world.
func (w *World) Entities() *entity.Registry { return w.ctx.Entities }

// Register constructs a system via its factory and stores it by name.
// Registering a taken name fails fast.
func (w *World) Register(name string, factory Factory) error {
	if w.destroyed {
		return ErrDestroyed
	}
	if _, ok := w.systems[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSystem, name)
	}

	system, err := factory(w.ctx)
	if err != nil {
		return fmt.Errorf("construct system %q: %w", name, err)
	}

	w.systems[name] = &registered{name: name, system: system, state: StateRegistered}
	w.order = append(w.order, name)
	return nil
}

// Lookup returns a registered system by name.
func (w *World) Lookup(name string) (System, bool) {
	r, ok := w.systems[name]
	if !ok {
		return nil, false
	}
	return r.system, true
}

// As resolves a registered system under its concrete type.
func As[T System](w *World, name string) (T, bool) {
	var zero T
	s, ok := w.Lookup(name)
	if !ok {
		return zero, false
	}
	t, ok := s.(T)
	return t, ok
}

// Init resolves the dependency graph and initializes every system
// strictly after all of its required dependencies. Unresolved required
// dependencies and cycles are fatal and reported before any Init hook
// runs.
func (w *World) Init(ctx context.Context) error {
	if w.destroyed {
		return ErrDestroyed
	}

	order, err := w.sortSystems()
	if err != nil {
		return err
	}
	w.initOrd = order

	for _, name := range order {
		r := w.systems[name]
		if err := r.system.Init(ctx); err != nil {
			return fmt.Errorf("init system %q: %w", name, err)
		}
		r.state = StateInitialized
		w.logger.Debug("system initialized", log.String("system", name))
	}
	w.initialized = true
	return nil
}

// Start starts every system in registration order. Init already
// established ordering invariants; Start needs none of its own.
func (w *World) Start() error {
	if !w.initialized {
		return ErrNotInitialized
	}
	if w.started {
		return ErrAlreadyStarted
	}

	for _, name := range w.order {
		r := w.systems[name]
		if err := r.system.Start(); err != nil {
			return fmt.Errorf("start system %q: %w", name, err)
		}
		r.state = StateStarted
	}
	w.started = true
	return nil
}

// AddHot registers a per-frame-updated object outside the system list.
func (w *World) AddHot(h HotObject) {
	w.hot = append(w.hot, h)
}

// RemoveHot unregisters a hot object.
func (w *World) RemoveHot(h HotObject) {
	for i, existing := range w.hot {
		if existing == h {
			w.hot = append(w.hot[:i], w.hot[i+1:]...)
			return
		}
	}
}

// Tick advances the world by one frame. now is absolute elapsed time;
// the first call anchors the clock. A hook error aborts the tick and is
// returned after being logged with the offending system's name; the
// caller decides whether to tick again or tear the world down.
func (w *World) Tick(now time.Duration) error {
	if !w.started {
		return ErrNotInitialized
	}

	t := now.Seconds()
	if !w.ticked {
		w.lastTime = t
		w.ticked = true
	}

	delta := t - w.lastTime
	if delta < 0 {
		delta = 0
	}
	if delta > w.config.MaxDeltaTime {
		delta = w.config.MaxDeltaTime
	}
	w.lastTime = t
	w.accumulator += delta

	fixed := w.config.FixedDeltaTime

	w.each(func(s System) { s.PreTick() })

	willStep := w.accumulator >= fixed
	w.each(func(s System) { s.PreFixedUpdate(willStep) })

	for w.accumulator >= fixed {
		if err := w.eachErr("fixed update", func(s System) error { return s.FixedUpdate(fixed) }); err != nil {
			return err
		}
		for _, h := range w.hot {
			h.FixedUpdate(fixed)
		}
		w.each(func(s System) { s.PostFixedUpdate(fixed) })
		for _, h := range w.hot {
			h.PostFixedUpdate(fixed)
		}
		w.accumulator -= fixed
	}

	alpha := w.accumulator / fixed
	w.each(func(s System) { s.PreUpdate(alpha) })
	if err := w.eachErr("update", func(s System) error { return s.Update(delta, alpha) }); err != nil {
		return err
	}
	w.each(func(s System) { s.PostUpdate(delta) })
	w.each(func(s System) { s.LateUpdate(delta, alpha) })
	w.each(func(s System) { s.PostLateUpdate(delta) })

	if err := w.eachErr("commit", func(s System) error { return s.Commit() }); err != nil {
		return err
	}
	w.each(func(s System) { s.PostTick() })
	return nil
}

// Accumulator exposes the leftover fixed-step time, < FixedDeltaTime
// after every Tick.
func (w *World) Accumulator() float64 { return w.accumulator }

// SystemState reports a system's lifecycle state.
func (w *World) SystemState(name string) (State, bool) {
	r, ok := w.systems[name]
	if !ok {
		return 0, false
	}
	return r.state, true
}

// Destroy tears the world down: systems destroyed in reverse init order,
// the hot set cleared, every entity destroyed. Coarse-grained: there is
// no partial or resumable teardown.
func (w *World) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true

	order := w.initOrd
	if order == nil {
		order = w.order
	}
	for i := len(order) - 1; i >= 0; i-- {
		r := w.systems[order[i]]
		if err := r.system.Destroy(); err != nil {
			w.logger.Error("system destroy failed",
				log.String("system", r.name), log.Error(err))
		}
		r.state = StateDestroyed
	}
	w.hot = nil
	w.ctx.Entities.Clear()
}

func (w *World) each(fn func(System)) {
	for _, name := range w.order {
		fn(w.systems[name].system)
	}
}

// eachErr drives an error-returning phase. The first failure is logged
// with the system's name and aborts the tick so the simulation never
// continues a frame in a possibly corrupt state.
func (w *World) eachErr(phase string, fn func(System) error) error {
	for _, name := range w.order {
		if err := fn(w.systems[name].system); err != nil {
			w.logger.Error("system phase failed",
				log.String("system", name),
				log.String("phase", phase),
				log.Error(err))
			return fmt.Errorf("system %q %s: %w", name, phase, err)
		}
	}
	return nil
}

// sortSystems produces a topological order over required dependencies,
// seeded by registration order so the result is deterministic. Optional
// dependencies order the graph only when the named system exists.
func (w *World) sortSystems() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(w.systems))
	order := make([]string, 0, len(w.systems))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: involving system %q", ErrDependencyCycle, name)
		}
		marks[name] = visiting

		deps := w.systems[name].system.Dependencies()
		for _, dep := range deps.Required {
			if _, ok := w.systems[dep]; !ok {
				return fmt.Errorf("%w: system %q requires %q", ErrMissingDependency, name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		for _, dep := range deps.Optional {
			if _, ok := w.systems[dep]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		marks[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range w.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
