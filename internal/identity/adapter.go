// Package identity exposes the signed-in user as an observable value and
// maps provider failures to user-facing reasons.
package identity

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/dilse/pkg/models"
)

// Provider is the remote authentication service.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	SignInWithIdp(ctx context.Context, providerID, credential string) (*models.Identity, error)
	SignOut(ctx context.Context, id *models.Identity) error
}

// Notifier is implemented by providers that push session changes on their
// own, such as a revoked token.
type Notifier interface {
	Notify(fn func(*models.Identity)) (cancel func())
}

// Listener receives every identity change. A nil identity means signed out.
type Listener func(*models.Identity)

type listenerEntry struct {
	fn Listener
	id int
}

// Adapter owns the current identity and publishes changes to listeners
// synchronously, in registration order.
type Adapter struct {
	provider     Provider
	current      *models.Identity
	cancelNotify func()
	listeners    []listenerEntry
	nextID       int
	mu           sync.Mutex
	// publishMu keeps deliveries in the order the changes happened.
	publishMu sync.Mutex
}

// NewAdapter wraps provider. If the provider is a Notifier, the adapter
// subscribes to it once here.
func NewAdapter(provider Provider) *Adapter {
	a := &Adapter{provider: provider}
	if n, ok := provider.(Notifier); ok {
		a.cancelNotify = n.Notify(func(id *models.Identity) {
			a.publish(id)
		})
	}
	return a
}

// Close detaches from the provider's notifications.
func (a *Adapter) Close() {
	if a.cancelNotify != nil {
		a.cancelNotify()
	}
}

// Current returns the signed-in identity, or nil.
func (a *Adapter) Current() *models.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Subscribe registers fn for identity changes and returns its unsubscribe func.
// fn is not called with the current value; callers read Current() for that.
func (a *Adapter) Subscribe(fn Listener) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	id := a.nextID
	a.listeners = append(a.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, l := range a.listeners {
			if l.id == id {
				a.listeners = append(a.listeners[:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

// publish stores id and notifies every listener. It returns the previous identity.
func (a *Adapter) publish(id *models.Identity) *models.Identity {
	a.publishMu.Lock()
	defer a.publishMu.Unlock()

	a.mu.Lock()
	prev := a.current
	a.current = id
	listeners := make([]listenerEntry, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, l := range listeners {
		l.fn(id)
	}
	return prev
}

// SignIn authenticates with email and password.
func (a *Adapter) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	const op = "sign in"
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, &AuthError{Op: op, Code: CodeInvalidEmail}
	}
	if password == "" {
		return nil, &AuthError{Op: op, Code: CodeWrongPassword}
	}

	id, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, a.fail(op, err)
	}
	a.publish(id)
	log.Info().Str("uid", id.UID).Msg("Signed in")
	return id, nil
}

// SignUp creates an account and signs it in. The display name is applied
// to the new account.
func (a *Adapter) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	const op = "sign up"
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, &AuthError{Op: op, Code: CodeInvalidEmail}
	}
	if password == "" {
		return nil, &AuthError{Op: op, Code: CodeWeakPassword}
	}

	id, err := a.provider.SignUp(ctx, email, password, strings.TrimSpace(displayName))
	if err != nil {
		return nil, a.fail(op, err)
	}
	a.publish(id)
	log.Info().Str("uid", id.UID).Msg("Account created")
	return id, nil
}

// SignInWithFederatedProvider exchanges a credential from an external
// identity provider (for example a Google id token) for a session.
func (a *Adapter) SignInWithFederatedProvider(ctx context.Context, providerID, credential string) (*models.Identity, error) {
	const op = "federated sign in"
	if providerID == "" || credential == "" {
		return nil, &AuthError{Op: op, Code: CodeInvalidCredential}
	}

	id, err := a.provider.SignInWithIdp(ctx, providerID, credential)
	if err != nil {
		return nil, a.fail(op, err)
	}
	a.publish(id)
	log.Info().Str("uid", id.UID).Str("provider", providerID).Msg("Signed in with federated provider")
	return id, nil
}

// SignOut clears the local identity first, then tells the provider.
// A provider failure is returned, but the user stays signed out locally.
// FirebaseProvider has no remote session to revoke and never fails here.
func (a *Adapter) SignOut(ctx context.Context) error {
	prev := a.Current()
	if prev == nil {
		return nil
	}
	a.publish(nil)

	if err := a.provider.SignOut(ctx, prev); err != nil {
		code := signOutCode(err)
		log.Warn().Err(err).Str("uid", prev.UID).Str("code", string(code)).Msg("Remote sign out failed, signed out locally")
		return &AuthError{Op: "sign out", Code: code, Err: err}
	}
	log.Info().Str("uid", prev.UID).Msg("Signed out")
	return nil
}

// fail normalises a provider error into an *AuthError.
func (a *Adapter) fail(op string, err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		log.Warn().Str("op", op).Str("code", string(ae.Code)).Msg("Authentication failed")
		return ae
	}

	code := CodeUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, ErrMisconfigured):
		code = CodeMisconfigured
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrNetwork), errors.As(err, &netErr):
		code = CodeNetwork
	}
	log.Warn().Err(err).Str("op", op).Str("code", string(code)).Msg("Authentication failed")
	return &AuthError{Op: op, Code: code, Err: err}
}

func signOutCode(err error) Code {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrNetwork), errors.As(err, &netErr):
		return CodeSignOutNetwork
	case errors.Is(err, ErrPermission):
		return CodeSignOutPermission
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "network"):
		return CodeSignOutNetwork
	case strings.Contains(msg, "permission"):
		return CodeSignOutPermission
	}
	return CodeSignOutFailed
}
