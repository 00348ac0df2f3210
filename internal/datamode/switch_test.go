package datamode

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
)

type memoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	loadErr error
	saveErr error
	loads   int
	saves   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (store *memoryStore) LoadPreference(_ context.Context, key string) (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.loads++
	if store.loadErr != nil {
		return "", false, store.loadErr
	}
	value, found := store.values[key]
	return value, found, nil
}

func (store *memoryStore) SavePreference(_ context.Context, key string, value string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.saveErr != nil {
		return store.saveErr
	}
	store.values[key] = value
	store.saves = append(store.saves, value)
	return nil
}

func mustNewSwitch(test *testing.T, store Store, options ...Option) *Switch {
	test.Helper()
	modeSwitch, err := NewSwitch(store, options...)
	if err != nil {
		test.Fatalf("new switch: %v", err)
	}
	return modeSwitch
}

func TestNewSwitchRequiresStore(test *testing.T) {
	test.Parallel()
	if _, err := NewSwitch(nil); !errors.Is(err, marketplace.ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config, got %v", err)
	}
}

func TestPersistedValueInterpretation(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name     string
		stored   *string
		expected bool
	}{
		{name: "missing", stored: nil, expected: true},
		{name: "false", stored: stringPointer("false"), expected: false},
		{name: "true", stored: stringPointer("true"), expected: true},
		{name: "garbage", stored: stringPointer("FALSE"), expected: true},
		{name: "empty", stored: stringPointer(""), expected: true},
	}
	for _, tc := range cases {
		tc := tc
		test.Run(tc.name, func(test *testing.T) {
			test.Parallel()
			store := newMemoryStore()
			if tc.stored != nil {
				store.values[PreferenceKey] = *tc.stored
			}
			modeSwitch := mustNewSwitch(test, store)
			if actual := modeSwitch.IsDemoMode(context.Background()); actual != tc.expected {
				test.Fatalf("expected demo=%v, got %v", tc.expected, actual)
			}
		})
	}
}

func TestPersistedValueIsReadOnce(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	store.values[PreferenceKey] = "false"
	modeSwitch := mustNewSwitch(test, store)
	modeSwitch.IsDemoMode(context.Background())

	store.mu.Lock()
	store.values[PreferenceKey] = "true"
	store.mu.Unlock()

	if modeSwitch.IsDemoMode(context.Background()) {
		test.Fatalf("expected in-memory value to stay authoritative")
	}
	if store.loads != 1 {
		test.Fatalf("expected a single load, got %d", store.loads)
	}
}

func TestTogglePersistsEveryChange(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	modeSwitch := mustNewSwitch(test, store)
	ctx := context.Background()
	if next := modeSwitch.Toggle(ctx); next || modeSwitch.IsDemoMode(ctx) || modeSwitch.Mode(ctx) != marketplace.ModeLive {
		test.Fatalf("expected live mode after first toggle")
	}
	if next := modeSwitch.Toggle(ctx); !next || !modeSwitch.IsDemoMode(ctx) {
		test.Fatalf("expected demo mode after second toggle")
	}
	if len(store.saves) != 2 || store.saves[0] != "false" || store.saves[1] != "true" {
		test.Fatalf("unexpected persisted values %v", store.saves)
	}
}

func TestStorageFailuresAreSwallowed(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	store.loadErr = errors.New("disk unavailable")
	store.saveErr = errors.New("disk unavailable")
	var hooked []error
	modeSwitch := mustNewSwitch(test, store, WithFailureHook(func(err error) { hooked = append(hooked, err) }))
	ctx := context.Background()

	if !modeSwitch.IsDemoMode(ctx) {
		test.Fatalf("expected demo mode when storage is unreadable")
	}
	before := modeSwitch.IsDemoMode(ctx)
	for attempt := 0; attempt < 3; attempt++ {
		after := modeSwitch.Toggle(ctx)
		if after == before || modeSwitch.IsDemoMode(ctx) != after {
			test.Fatalf("toggle %d did not negate the flag", attempt)
		}
		before = after
	}
	if modeSwitch.StorageFailures() != 4 {
		test.Fatalf("expected 4 swallowed failures, got %d", modeSwitch.StorageFailures())
	}
	if len(hooked) != 4 || !errors.Is(hooked[0], marketplace.ErrStorageUnavailable) {
		test.Fatalf("unexpected hooked failures %v", hooked)
	}
}

func TestSetPersistsValue(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	modeSwitch := mustNewSwitch(test, store)
	modeSwitch.Set(context.Background(), false)
	if modeSwitch.IsDemoMode(context.Background()) || store.values[PreferenceKey] != "false" {
		test.Fatalf("expected live mode to be stored")
	}
}

func TestConcurrentTogglesStayConsistent(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	modeSwitch := mustNewSwitch(test, store)
	ctx := context.Background()
	var group sync.WaitGroup
	for worker := 0; worker < 10; worker++ {
		group.Add(1)
		go func() {
			defer group.Done()
			modeSwitch.Toggle(ctx)
		}()
	}
	group.Wait()
	if !modeSwitch.IsDemoMode(ctx) {
		test.Fatalf("expected an even number of toggles to restore demo mode")
	}
	if store.values[PreferenceKey] != "true" {
		test.Fatalf("expected persisted value to match memory, got %q", store.values[PreferenceKey])
	}
}

func stringPointer(value string) *string {
	return &value
}
