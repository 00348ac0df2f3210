package wallet

// ConnectionState is the lifecycle state of a wallet session.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// WalletType names the kind of signer behind a session.
type WalletType string

const (
	WalletTypeNone      WalletType = "none"
	WalletTypeExtension WalletType = "extension_wallet"
)

// Session is an immutable snapshot of the wallet connection.
// PublicKey is set exactly when State is StateConnected.
type Session struct {
	PublicKey  string          `json:"publicKey,omitempty"`
	WalletType WalletType      `json:"walletType"`
	State      ConnectionState `json:"connectionState"`
	LastError  string          `json:"lastError,omitempty"`
}

// Connected reports whether the session holds a usable key.
func (session Session) Connected() bool {
	return session.State == StateConnected && session.PublicKey != ""
}

func initialSession() Session {
	return Session{WalletType: WalletTypeNone, State: StateDisconnected}
}
