package iothub

import "sync"

// DisconnectFunc receives session-loss notifications; tokenExpired is
// true when the credential had already expired at the moment the
// session was lost
type DisconnectFunc func(tokenExpired bool)

// RenewedFunc receives the expiry of a freshly minted credential
type RenewedFunc func(expiresAt int64)

// renewalRecord remembers a renewal minted on the connect path whose
// notification has not been delivered yet
type renewalRecord struct {
	expiresAt  int64
	wasExpired bool
}

// LifecycleManager owns the credential and decides whether a
// replacement token is minted before the next connection attempt. It
// keeps no clock of its own; the current time is sampled by the caller
// when a session-loss event or a connection attempt arrives.
type LifecycleManager struct {
	// OnDisconnect and OnTokenRenewed are optional notification hooks.
	// Set them before the first session-loss event can fire.
	OnDisconnect   DisconnectFunc
	OnTokenRenewed RenewedFunc

	audience string
	cred     Credential
	pending  *renewalRecord
	lock     sync.Mutex
}

// NewLifecycleManager issues the initial credential expiring at
// now+lifetime. An issuance failure here is fatal: no manager is created.
func NewLifecycleManager(alg Algorithm, keyPEM []byte, audience string, lifetime, now int64) (*LifecycleManager, error) {
	expiresAt := now + lifetime
	token, err := IssueToken(alg, keyPEM, audience, expiresAt)
	if err != nil {
		return nil, err
	}
	return &LifecycleManager{
		audience: audience,
		cred: Credential{
			Algorithm:  alg,
			PrivateKey: keyPEM,
			Token:      token,
			ExpiresAt:  expiresAt,
			Lifetime:   lifetime,
		},
	}, nil
}

// Token returns the currently issued token
func (m *LifecycleManager) Token() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cred.Token
}

// ExpiresAt returns the expiry of the currently issued token
func (m *LifecycleManager) ExpiresAt() int64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cred.ExpiresAt
}

// refreshLocked mints a replacement token once the current one is more
// than half consumed; a fresher token is reused as-is, which keeps a
// flapping connection from triggering a renewal storm. Caller holds the
// lock. On an issuance failure the stale credential stays in place.
func (m *LifecycleManager) refreshLocked(now int64) (renewed bool, err error) {
	remaining := m.cred.ExpiresAt - now
	if remaining >= m.cred.Lifetime/2 {
		return false, nil
	}
	expiresAt := now + m.cred.Lifetime
	token, err := IssueToken(m.cred.Algorithm, m.cred.PrivateKey, m.audience, expiresAt)
	if err != nil {
		return false, err
	}
	m.cred.Token = token
	m.cred.ExpiresAt = expiresAt
	return true, nil
}

// Refresh returns the token for a connection attempt, minting a
// replacement first when the current one is more than half consumed.
// The transport reads credentials synchronously while building each
// CONNECT packet, so routing the renewal through here guarantees the
// very first reconnect attempt after an outage already carries a fresh
// token. The notification for a renewal minted here is deferred to the
// session-loss evaluation, keeping the disconnect notification ahead of
// the renewal notification regardless of which path runs first. On an
// issuance failure the stale token is returned along with the error.
func (m *LifecycleManager) Refresh(now int64) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	wasExpired := m.cred.ExpiresAt-now < 0
	renewed, err := m.refreshLocked(now)
	if renewed {
		m.pending = &renewalRecord{expiresAt: m.cred.ExpiresAt, wasExpired: wasExpired}
	}
	return m.cred.Token, err
}

// SessionLost evaluates the credential against the given time. The
// disconnect notification is emitted unconditionally, before any
// renewal notification. If the connect path already minted the
// replacement for this loss event, only the deferred notifications are
// delivered. On an issuance failure the stale credential stays in place
// and the error is returned; the next connection attempt surfaces the
// rejection through the transport.
func (m *LifecycleManager) SessionLost(now int64) error {
	m.lock.Lock()
	if pending := m.pending; pending != nil {
		m.pending = nil
		m.lock.Unlock()
		if f := m.OnDisconnect; f != nil {
			f(pending.wasExpired)
		}
		if f := m.OnTokenRenewed; f != nil {
			f(pending.expiresAt)
		}
		return nil
	}
	wasExpired := m.cred.ExpiresAt-now < 0
	renewed, err := m.refreshLocked(now)
	expiresAt := m.cred.ExpiresAt
	m.lock.Unlock()

	if f := m.OnDisconnect; f != nil {
		f(wasExpired)
	}
	if err != nil {
		return err
	}
	if renewed {
		if f := m.OnTokenRenewed; f != nil {
			f(expiresAt)
		}
	}
	return nil
}

// ReplacePrivateKey stores a new signing key for use at the next
// renewal. The currently issued token is not reissued. Only the shallow
// PEM check runs here; a key incompatible with the configured algorithm
// surfaces as an IssueError at the next renewal.
func (m *LifecycleManager) ReplacePrivateKey(keyPEM []byte) error {
	if err := CheckPEM(keyPEM); err != nil {
		return err
	}
	m.lock.Lock()
	m.cred.PrivateKey = append([]byte(nil), keyPEM...)
	m.lock.Unlock()
	return nil
}
