package world

import "context"

// Dependencies declares what a system needs before its Init hook runs.
// Required names must be registered in the same world or Init fails;
// optional names only influence ordering when present.
type Dependencies struct {
	Required []string
	Optional []string
}

// System is a named, long-lived unit driven through the world's ordered
// phases. Implementations embed Base and override only the hooks they
// care about.
type System interface {
	Name() string
	Dependencies() Dependencies

	// Init runs once, strictly after every required dependency's Init.
	Init(ctx context.Context) error
	// Start runs once after all systems initialized, in registration order.
	Start() error

	// Per-tick phases, in call order.

	PreTick()
	PreFixedUpdate(willStep bool)
	FixedUpdate(fixedDelta float64) error
	PostFixedUpdate(fixedDelta float64)
	PreUpdate(alpha float64)
	Update(delta, alpha float64) error
	PostUpdate(delta float64)
	LateUpdate(delta, alpha float64)
	PostLateUpdate(delta float64)
	Commit() error
	PostTick()

	// Destroy releases the system's resources during world teardown.
	Destroy() error
}

// Factory constructs a system against the world context at registration
// time.
type Factory func(ctx *Context) (System, error)

// HotObject is a per-frame-updated object registered outside the formal
// system list, e.g. an individual entity needing fixed-step ticking.
type HotObject interface {
	FixedUpdate(fixedDelta float64)
	PostFixedUpdate(fixedDelta float64)
}

// State tracks where a system is in its one-directional lifecycle.
// Transitions are driven solely by the world; systems never advance
// their own state.
type State uint8

const (
	StateRegistered State = iota
	StateInitialized
	StateStarted
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Base is a no-op implementation of every optional hook. Embed it and
// override selectively; Name must always be provided by the embedder.
type Base struct{}

func (Base) Dependencies() Dependencies    { return Dependencies{} }
func (Base) Init(context.Context) error    { return nil }
func (Base) Start() error                  { return nil }
func (Base) PreTick()                      {}
func (Base) PreFixedUpdate(bool)           {}
func (Base) FixedUpdate(float64) error     { return nil }
func (Base) PostFixedUpdate(float64)       {}
func (Base) PreUpdate(float64)             {}
func (Base) Update(float64, float64) error { return nil }
func (Base) PostUpdate(float64)            {}
func (Base) LateUpdate(float64, float64)   {}
func (Base) PostLateUpdate(float64)        {}
func (Base) Commit() error                 { return nil }
func (Base) PostTick()                     {}
func (Base) Destroy() error                { return nil }
