// Package devices holds the last-known device lists and the persisted
// input/output selection.
package devices

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"meetnote/internal/domain"
	"meetnote/internal/ports"
)

// Registry mediates device enumeration and the durable device selection.
// Enumeration always delegates to the engine; no staleness guarantee is made
// beyond the cached last-known lists.
type Registry struct {
	engine   ports.Engine
	settings ports.Settings
	log      zerolog.Logger

	mu        sync.Mutex
	known     map[domain.DeviceKind][]string
	defaulted map[domain.DeviceKind]bool
}

func NewRegistry(engine ports.Engine, settings ports.Settings, log zerolog.Logger) *Registry {
	return &Registry{
		engine:   engine,
		settings: settings,
		log:      log.With().Str("component", "devices").Logger(),
		known:    make(map[domain.DeviceKind][]string),
		defaulted: map[domain.DeviceKind]bool{
			domain.DeviceInput:  false,
			domain.DeviceOutput: false,
		},
	}
}

// ListInputDevices refetches the engine's capture device list. A failed
// enumeration falls back to the last-known list rather than blanking the
// picker on a transient engine error.
func (r *Registry) ListInputDevices(ctx context.Context) ([]string, error) {
	names, err := r.engine.EnumerateInputDevices(ctx)
	if err != nil {
		if known := r.KnownDevices(domain.DeviceInput); len(known) > 0 {
			r.log.Warn().Err(err).Msg("input enumeration failed, serving last-known list")
			return known, nil
		}
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}
	r.observe(ctx, domain.DeviceInput, names)
	return names, nil
}

// ListOutputDevices refetches the engine's playback device list, with the
// same last-known fallback as ListInputDevices.
func (r *Registry) ListOutputDevices(ctx context.Context) ([]string, error) {
	names, err := r.engine.EnumerateOutputDevices(ctx)
	if err != nil {
		if known := r.KnownDevices(domain.DeviceOutput); len(known) > 0 {
			r.log.Warn().Err(err).Msg("output enumeration failed, serving last-known list")
			return known, nil
		}
		return nil, fmt.Errorf("enumerate output devices: %w", err)
	}
	r.observe(ctx, domain.DeviceOutput, names)
	return names, nil
}

// Selection returns the persisted device name for kind, if any.
func (r *Registry) Selection(kind domain.DeviceKind) (string, bool) {
	return r.settings.Selection(kind)
}

// CurrentSelection returns both persisted selections.
func (r *Registry) CurrentSelection() domain.DeviceSelection {
	var sel domain.DeviceSelection
	if name, ok := r.settings.Selection(domain.DeviceInput); ok {
		sel.InputDevice = name
	}
	if name, ok := r.settings.Selection(domain.DeviceOutput); ok {
		sel.OutputDevice = name
	}
	return sel
}

// SetSelection persists an explicit user choice and makes it the engine's
// active device. The output write retargets live audio playback immediately.
func (r *Registry) SetSelection(ctx context.Context, kind domain.DeviceKind, name string) error {
	if err := r.settings.SetSelection(kind, name); err != nil {
		return err
	}

	r.mu.Lock()
	// An explicit choice consumes the one-shot default for this kind.
	r.defaulted[kind] = true
	r.mu.Unlock()

	var err error
	switch kind {
	case domain.DeviceInput:
		err = r.engine.SetInputDevice(ctx, name)
	case domain.DeviceOutput:
		err = r.engine.SetOutputDevice(ctx, name)
	default:
		return fmt.Errorf("unknown device kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("activate %s device: %w", kind, err)
	}
	r.log.Info().Str("kind", string(kind)).Str("device", name).Msg("device selected")
	return nil
}

// ClearSelection removes the persisted choice and re-arms the default rule
// for that kind.
func (r *Registry) ClearSelection(kind domain.DeviceKind) error {
	if err := r.settings.ClearSelection(kind); err != nil {
		return err
	}
	r.mu.Lock()
	r.defaulted[kind] = false
	r.mu.Unlock()
	return nil
}

// observe applies the default-selection rule: the first enumerated device
// becomes the selection when none exists, at most once per kind per process
// lifetime. An empty list does not consume the one shot.
func (r *Registry) observe(ctx context.Context, kind domain.DeviceKind, names []string) {
	r.mu.Lock()
	r.known[kind] = append([]string(nil), names...)
	if r.defaulted[kind] || len(names) == 0 {
		r.mu.Unlock()
		return
	}
	if _, ok := r.settings.Selection(kind); ok {
		r.defaulted[kind] = true
		r.mu.Unlock()
		return
	}
	r.defaulted[kind] = true
	r.mu.Unlock()

	if err := r.SetSelection(ctx, kind, names[0]); err != nil {
		r.log.Warn().Err(err).Str("kind", string(kind)).Msg("default device selection failed")
	}
}

// KnownDevices returns the last-known list for kind.
func (r *Registry) KnownDevices(kind domain.DeviceKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.known[kind]...)
}
