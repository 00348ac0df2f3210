// Package wallet tracks the connection to a single extension wallet and routes signing
// requests to it.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"go.uber.org/zap"
)

// Extension is the signing capability exposed by a wallet extension.
type Extension interface {
	IsConnected(ctx context.Context) (bool, error)
	Connect(ctx context.Context) error
	PublicKey(ctx context.Context) (string, error)
	SignTransaction(ctx context.Context, transactionXDR string) (string, error)
}

// Locator discovers the extension. It returns marketplace.ErrExtensionNotFound when none is available.
type Locator interface {
	Locate(ctx context.Context) (Extension, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Extension, error)

// Locate calls the function.
func (locate LocatorFunc) Locate(ctx context.Context) (Extension, error) {
	return locate(ctx)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for swallowed probe failures.
func WithLogger(logger *zap.Logger) Option {
	return func(manager *Manager) {
		if logger != nil {
			manager.logger = logger
		}
	}
}

// Manager owns the wallet session. Extension calls run outside the lock; results are applied
// only if no disconnect happened in the meantime and the caller is still waiting.
type Manager struct {
	locator Locator
	logger  *zap.Logger

	mu         sync.Mutex
	session    Session
	extension  Extension
	generation uint64
}

// NewManager builds a disconnected Manager.
func NewManager(locator Locator, options ...Option) (*Manager, error) {
	if locator == nil {
		return nil, fmt.Errorf("%w: wallet locator is nil", marketplace.ErrInvalidServiceConfig)
	}
	manager := &Manager{
		locator: locator,
		logger:  zap.NewNop(),
		session: initialSession(),
	}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	return manager, nil
}

// Session returns a snapshot of the current session.
func (manager *Manager) Session() Session {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.session
}

// PublicKey returns the connected key.
func (manager *Manager) PublicKey() (string, bool) {
	session := manager.Session()
	return session.PublicKey, session.Connected()
}

// Connect authorizes the extension and reads its key. Connecting an already connected
// session is a no-op that returns the current session.
func (manager *Manager) Connect(ctx context.Context) (Session, error) {
	manager.mu.Lock()
	switch manager.session.State {
	case StateConnected:
		session := manager.session
		manager.mu.Unlock()
		return session, nil
	case StateConnecting:
		manager.mu.Unlock()
		return Session{}, marketplace.ErrConnectInProgress
	}
	previous := manager.session
	generation := manager.generation
	manager.session = Session{WalletType: previous.WalletType, State: StateConnecting}
	manager.mu.Unlock()

	extension, publicKey, err := manager.authorize(ctx)

	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.generation != generation {
		return manager.session, fmt.Errorf("%w: disconnected while connecting", marketplace.ErrConnectionFailed)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		manager.session = previous
		return previous, ctxErr
	}
	if err != nil {
		manager.session = Session{WalletType: WalletTypeNone, State: StateError, LastError: err.Error()}
		manager.extension = nil
		return manager.session, err
	}
	manager.session = Session{PublicKey: publicKey, WalletType: WalletTypeExtension, State: StateConnected}
	manager.extension = extension
	return manager.session, nil
}

func (manager *Manager) authorize(ctx context.Context) (Extension, string, error) {
	extension, err := manager.locate(ctx)
	if err != nil {
		return nil, "", err
	}
	connected, err := extension.IsConnected(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", marketplace.ErrConnectionFailed, err)
	}
	if !connected {
		if err := extension.Connect(ctx); err != nil {
			return nil, "", fmt.Errorf("%w: %v", marketplace.ErrConnectionFailed, err)
		}
	}
	publicKey, err := readPublicKey(ctx, extension)
	if err != nil {
		return nil, "", err
	}
	return extension, publicKey, nil
}

func (manager *Manager) locate(ctx context.Context) (Extension, error) {
	extension, err := manager.locator.Locate(ctx)
	if err != nil {
		if errors.Is(err, marketplace.ErrExtensionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", marketplace.ErrExtensionNotFound, err)
	}
	if extension == nil {
		return nil, marketplace.ErrExtensionNotFound
	}
	return extension, nil
}

func readPublicKey(ctx context.Context, extension Extension) (string, error) {
	publicKey, err := extension.PublicKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", marketplace.ErrConnectionFailed, err)
	}
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return "", fmt.Errorf("%w: extension returned an empty public key", marketplace.ErrConnectionFailed)
	}
	return publicKey, nil
}

// Disconnect resets the session locally. The extension is not contacted.
func (manager *Manager) Disconnect() Session {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.generation++
	manager.session = initialSession()
	manager.extension = nil
	return manager.session
}

// SignTransaction signs an unsigned transaction envelope with the connected extension.
func (manager *Manager) SignTransaction(ctx context.Context, transactionXDR string) (string, error) {
	manager.mu.Lock()
	extension := manager.extension
	connected := manager.session.Connected()
	manager.mu.Unlock()
	if !connected || extension == nil {
		return "", marketplace.ErrNotConnected
	}
	signed, err := extension.SignTransaction(ctx, transactionXDR)
	if err != nil {
		return "", fmt.Errorf("%w: %v", marketplace.ErrSigningFailed, err)
	}
	if strings.TrimSpace(signed) == "" {
		return "", fmt.Errorf("%w: extension returned an empty envelope", marketplace.ErrSigningFailed)
	}
	return signed, nil
}

// Probe adopts an existing authorization without prompting. Failures are logged and ignored.
func (manager *Manager) Probe(ctx context.Context) {
	manager.mu.Lock()
	if manager.session.State != StateDisconnected {
		manager.mu.Unlock()
		return
	}
	generation := manager.generation
	manager.mu.Unlock()

	extension, err := manager.locate(ctx)
	if err != nil {
		manager.logger.Debug("wallet extension unavailable during probe", zap.Error(err))
		return
	}
	connected, err := extension.IsConnected(ctx)
	if err != nil {
		manager.logger.Warn("wallet probe failed", zap.Error(err))
		return
	}
	if !connected {
		return
	}
	publicKey, err := readPublicKey(ctx, extension)
	if err != nil {
		manager.logger.Warn("wallet probe failed", zap.Error(err))
		return
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.generation != generation || manager.session.State != StateDisconnected || ctx.Err() != nil {
		return
	}
	manager.session = Session{PublicKey: publicKey, WalletType: WalletTypeExtension, State: StateConnected}
	manager.extension = extension
	manager.logger.Info("wallet session restored", zap.String("public_key", publicKey))
}
