// Package datamode holds the process-wide demo/live flag.
package datamode

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"go.uber.org/zap"
)

// PreferenceKey is the persisted key holding the flag.
const PreferenceKey = "celestium-demo-mode"

const (
	liveValue = "false"

	storageOperationLoad = "load"
	storageOperationSave = "save"
)

// Store persists string preferences.
type Store interface {
	LoadPreference(ctx context.Context, key string) (string, bool, error)
	SavePreference(ctx context.Context, key string, value string) error
}

// Option configures a Switch.
type Option func(*Switch)

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(logger *zap.Logger) Option {
	return func(modeSwitch *Switch) {
		if logger != nil {
			modeSwitch.logger = logger
		}
	}
}

// WithFailureHook registers a callback for every swallowed storage failure.
func WithFailureHook(hook func(error)) Option {
	return func(modeSwitch *Switch) {
		modeSwitch.onFailure = hook
	}
}

// Switch is the demo/live flag. The persisted value is read once, lazily; afterwards the
// in-memory value is authoritative. Storage failures never surface to callers.
type Switch struct {
	store     Store
	logger    *zap.Logger
	onFailure func(error)

	loadOnce sync.Once
	demo     atomic.Bool
	writeMu  sync.Mutex
	failures atomic.Int64
}

// NewSwitch builds a Switch over store.
func NewSwitch(store Store, options ...Option) (*Switch, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: preference store is nil", marketplace.ErrInvalidServiceConfig)
	}
	modeSwitch := &Switch{store: store, logger: zap.NewNop()}
	modeSwitch.demo.Store(true)
	for _, option := range options {
		if option != nil {
			option(modeSwitch)
		}
	}
	return modeSwitch, nil
}

// IsDemoMode reports whether demo mode is active.
func (modeSwitch *Switch) IsDemoMode(ctx context.Context) bool {
	modeSwitch.load(ctx)
	return modeSwitch.demo.Load()
}

// Mode returns the active mode.
func (modeSwitch *Switch) Mode(ctx context.Context) marketplace.Mode {
	if modeSwitch.IsDemoMode(ctx) {
		return marketplace.ModeDemo
	}
	return marketplace.ModeLive
}

// Toggle flips the flag, persists it and returns the new value.
func (modeSwitch *Switch) Toggle(ctx context.Context) bool {
	modeSwitch.load(ctx)
	modeSwitch.writeMu.Lock()
	defer modeSwitch.writeMu.Unlock()
	next := !modeSwitch.demo.Load()
	modeSwitch.demo.Store(next)
	modeSwitch.persist(ctx, next)
	return next
}

// Set forces the flag and persists it.
func (modeSwitch *Switch) Set(ctx context.Context, demo bool) {
	modeSwitch.load(ctx)
	modeSwitch.writeMu.Lock()
	defer modeSwitch.writeMu.Unlock()
	modeSwitch.demo.Store(demo)
	modeSwitch.persist(ctx, demo)
}

// StorageFailures counts the storage failures swallowed so far.
func (modeSwitch *Switch) StorageFailures() int64 {
	return modeSwitch.failures.Load()
}

func (modeSwitch *Switch) load(ctx context.Context) {
	modeSwitch.loadOnce.Do(func() {
		value, found, err := modeSwitch.store.LoadPreference(ctx, PreferenceKey)
		if err != nil {
			modeSwitch.reportFailure(storageOperationLoad, err)
			return
		}
		if found {
			modeSwitch.demo.Store(value != liveValue)
		}
	})
}

func (modeSwitch *Switch) persist(ctx context.Context, demo bool) {
	if err := modeSwitch.store.SavePreference(ctx, PreferenceKey, strconv.FormatBool(demo)); err != nil {
		modeSwitch.reportFailure(storageOperationSave, err)
	}
}

func (modeSwitch *Switch) reportFailure(operation string, err error) {
	modeSwitch.failures.Add(1)
	wrapped := fmt.Errorf("%w: %v", marketplace.ErrStorageUnavailable, err)
	modeSwitch.logger.Warn("data mode preference storage failed",
		zap.String("operation", operation),
		zap.String("key", PreferenceKey),
		zap.Error(wrapped),
	)
	if modeSwitch.onFailure != nil {
		modeSwitch.onFailure(wrapped)
	}
}
