package streamledger

import (
	"context"
	"errors"

	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/types"
)

// Initialize records the administrator. It succeeds at most once per store;
// later calls return ErrAlreadyInitialized. Initialize itself requires no
// authorization.
func (l *Ledger) Initialize(ctx context.Context, admin types.Address) error {
	if admin.IsZero() {
		return ValidationError{Field: "admin", Message: "must not be empty"}
	}

	if err := l.store.InitAdmin(ctx, admin); err != nil {
		return err
	}

	l.logger.Info("ledger initialized", "admin", admin)

	return nil
}

// Admin returns the administrator, and false before Initialize.
func (l *Ledger) Admin(ctx context.Context) (types.Address, bool, error) {
	return l.store.GetAdmin(ctx)
}

// SetEmergencyMode turns the emergency halt on or off. Only the recorded
// administrator may call it.
func (l *Ledger) SetEmergencyMode(ctx context.Context, admin types.Address, enabled bool) error {
	if err := l.authenticate(ctx, admin, auth.Call{Operation: auth.OpSetEmergencyMode}); err != nil {
		return err
	}

	l.govMu.Lock()
	defer l.govMu.Unlock()

	current, ok, err := l.store.GetAdmin(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Join(ErrUnauthorized, errNoAdmin)
	}
	if current != admin {
		return ErrNotAdmin
	}

	if err := l.store.SetEmergencyStop(ctx, enabled); err != nil {
		return err
	}

	l.logger.Info("emergency mode changed", "admin", admin, "enabled", enabled)

	l.emit(&event.EmergencyStopToggled{
		Admin:     admin,
		Enabled:   enabled,
		Timestamp: l.clock.Now(),
	})

	return nil
}

var errNoAdmin = errors.New("streamledger: no admin recorded")

// IsEmergencyMode reports whether the emergency halt is on.
func (l *Ledger) IsEmergencyMode(ctx context.Context) (bool, error) {
	return l.store.GetEmergencyStop(ctx)
}

func (l *Ledger) checkEmergency(ctx context.Context) error {
	on, err := l.store.GetEmergencyStop(ctx)
	if err != nil {
		return err
	}
	if on {
		return ErrEmergencyStopEnabled
	}
	return nil
}
