package world

import "errors"

// Configuration errors, fatal at registration or init time
var (
	ErrDuplicateSystem   = errors.New("system name already registered")
	ErrMissingDependency = errors.New("required dependency not registered")
	ErrDependencyCycle   = errors.New("dependency cycle detected")
	ErrNotInitialized    = errors.New("world is not initialized")
	ErrAlreadyStarted    = errors.New("world already started")
	ErrDestroyed         = errors.New("world is destroyed")
)
