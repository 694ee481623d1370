package entity

import "errors"

var (
	ErrUnknownComponentType = errors.New("no factory registered for component type")
	ErrFactoryRegistered    = errors.New("component factory already registered")
	ErrEntityDestroyed      = errors.New("entity is destroyed")
	ErrEntityExists         = errors.New("entity id already present")
)
