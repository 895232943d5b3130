package engine

import (
	"sync"

	"github.com/pushmill/automation-engine/pkg/config"
)

var (
	initOnce sync.Once
	instance *Engine
)

// Init constructs the process-wide engine exactly once. During build-phase
// environments (image bake, swagger generation) initialization is refused so
// no cron runner or store connection comes up.
func Init(deps Deps) (*Engine, error) {
	if config.IsBuildPhase() {
		return nil, ErrBuildPhase
	}

	initOnce.Do(func() {
		instance = New(deps)
	})
	return instance, nil
}

// Get returns the engine initialized by Init.
func Get() (*Engine, error) {
	if instance == nil {
		return nil, ErrNotInitialized
	}
	return instance, nil
}
