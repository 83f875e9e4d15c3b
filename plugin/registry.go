package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/streamledger/event"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages registered plugins and dispatches to them. Hook lists
// are cached per interface at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onStreamCreated        []OnStreamCreated
	onStreamToppedUp       []OnStreamToppedUp
	onTokensWithdrawn      []OnTokensWithdrawn
	onStreamCancelled      []OnStreamCancelled
	onSettlementFailed     []OnSettlementFailed
	onEmergencyStopToggled []OnEmergencyStopToggled
	onEvent                []OnEvent
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnStreamToppedUp); ok {
		r.onStreamToppedUp = append(r.onStreamToppedUp, v)
	}
	if v, ok := p.(OnTokensWithdrawn); ok {
		r.onTokensWithdrawn = append(r.onTokensWithdrawn, v)
	}
	if v, ok := p.(OnStreamCancelled); ok {
		r.onStreamCancelled = append(r.onStreamCancelled, v)
	}
	if v, ok := p.(OnSettlementFailed); ok {
		r.onSettlementFailed = append(r.onSettlementFailed, v)
	}
	if v, ok := p.(OnEmergencyStopToggled); ok {
		r.onEmergencyStopToggled = append(r.onEmergencyStopToggled, v)
	}
	if v, ok := p.(OnEvent); ok {
		r.onEvent = append(r.onEvent, v)
	}

	r.logger.Debug("plugin registered", "plugin", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error { return p.OnInit(ctx, l) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error { return p.OnShutdown(ctx) })
	}
}

// EmitSettlementFailed reports a failed payout leg.
func (r *Registry) EmitSettlementFailed(ctx context.Context, streamID uint64, leg string, cause error) {
	r.mu.RLock()
	plugins := r.onSettlementFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnSettlementFailed", func() error {
			return p.OnSettlementFailed(ctx, streamID, leg, cause)
		})
	}
}

// Emit dispatches env to the typed hook matching its payload and then to
// every OnEvent hook.
func (r *Registry) Emit(ctx context.Context, env *event.Envelope) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch e := env.Payload.(type) {
	case *event.StreamCreated:
		for _, p := range r.onStreamCreated {
			r.call(ctx, p.Name(), "OnStreamCreated", func() error { return p.OnStreamCreated(ctx, e) })
		}
	case *event.StreamToppedUp:
		for _, p := range r.onStreamToppedUp {
			r.call(ctx, p.Name(), "OnStreamToppedUp", func() error { return p.OnStreamToppedUp(ctx, e) })
		}
	case *event.TokensWithdrawn:
		for _, p := range r.onTokensWithdrawn {
			r.call(ctx, p.Name(), "OnTokensWithdrawn", func() error { return p.OnTokensWithdrawn(ctx, e) })
		}
	case *event.StreamCancelled:
		for _, p := range r.onStreamCancelled {
			r.call(ctx, p.Name(), "OnStreamCancelled", func() error { return p.OnStreamCancelled(ctx, e) })
		}
	case *event.EmergencyStopToggled:
		for _, p := range r.onEmergencyStopToggled {
			r.call(ctx, p.Name(), "OnEmergencyStopToggled", func() error { return p.OnEmergencyStopToggled(ctx, e) })
		}
	}

	for _, p := range r.onEvent {
		r.call(ctx, p.Name(), "OnEvent", func() error { return p.OnEvent(ctx, env) })
	}
}

func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the notification worker.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
