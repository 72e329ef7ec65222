// Package input registers the global hotkeys that drive the dictation
// lifecycle without window focus: one binding toggles recording, one toggles
// pause.
package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// Bindings names the hotkey combinations for each action. Empty strings
// leave the action unbound.
type Bindings struct {
	// RecordToggle starts a recording, or stops the active one
	RecordToggle string

	// PauseToggle pauses the active recording, or resumes a paused one
	PauseToggle string
}

// DefaultBindings returns the standard key combinations
func DefaultBindings() Bindings {
	return Bindings{
		RecordToggle: "ctrl+shift+d",
		PauseToggle:  "ctrl+shift+p",
	}
}

// Actions receives hotkey presses. Callbacks run on the listener goroutine;
// either may be nil.
type Actions struct {
	OnRecordToggle func()
	OnPauseToggle  func()
}

// Listener owns the registered hotkeys and dispatches presses to Actions.
type Listener struct {
	actions Actions

	mu     sync.Mutex
	keys   []*hotkey.Hotkey
	cancel context.CancelFunc
	done   []chan struct{}
}

// NewListener creates a hotkey listener
func NewListener(actions Actions) *Listener {
	return &Listener{actions: actions}
}

// Start registers the bindings and begins dispatching presses. A binding
// that fails to parse or register aborts the whole start.
func (l *Listener) Start(ctx context.Context, bindings Bindings) error {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	type binding struct {
		combo  string
		action func()
	}
	all := []binding{
		{bindings.RecordToggle, l.actions.OnRecordToggle},
		{bindings.PauseToggle, l.actions.OnPauseToggle},
	}

	for _, b := range all {
		if b.combo == "" || b.action == nil {
			continue
		}
		if err := l.register(ctx, b.combo, b.action); err != nil {
			l.Stop()
			return err
		}
	}
	return nil
}

func (l *Listener) register(ctx context.Context, combo string, action func()) error {
	mods, key, err := parseCombo(combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey %q: %w", combo, err)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register %q: %w", combo, err)
	}

	done := make(chan struct{})

	l.mu.Lock()
	l.keys = append(l.keys, hk)
	l.done = append(l.done, done)
	l.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-hk.Keydown():
				if !ok {
					return
				}
				action()
			}
		}
	}()

	return nil
}

// Stop unregisters every binding and waits briefly for dispatch to drain
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	keys := l.keys
	done := l.done
	l.keys = nil
	l.done = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, hk := range keys {
		hk.Unregister()
	}
	for _, d := range done {
		select {
		case <-d:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// parseCombo parses a combination like "ctrl+shift+d" into its modifiers
// and key.
func parseCombo(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(s), "+")

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			return nil, 0, fmt.Errorf("empty component")
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win":
			mods = append(mods, modSuper())
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, ok := keyNames[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %s", part)
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}
	return mods, key, nil
}

var keyNames = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"escape": hotkey.KeyEscape,
	"esc":    hotkey.KeyEscape,
	"a":      hotkey.KeyA,
	"b":      hotkey.KeyB,
	"c":      hotkey.KeyC,
	"d":      hotkey.KeyD,
	"e":      hotkey.KeyE,
	"f":      hotkey.KeyF,
	"g":      hotkey.KeyG,
	"h":      hotkey.KeyH,
	"i":      hotkey.KeyI,
	"j":      hotkey.KeyJ,
	"k":      hotkey.KeyK,
	"l":      hotkey.KeyL,
	"m":      hotkey.KeyM,
	"n":      hotkey.KeyN,
	"o":      hotkey.KeyO,
	"p":      hotkey.KeyP,
	"q":      hotkey.KeyQ,
	"r":      hotkey.KeyR,
	"s":      hotkey.KeyS,
	"t":      hotkey.KeyT,
	"u":      hotkey.KeyU,
	"v":      hotkey.KeyV,
	"w":      hotkey.KeyW,
	"x":      hotkey.KeyX,
	"y":      hotkey.KeyY,
	"z":      hotkey.KeyZ,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
	"f1":     hotkey.KeyF1,
	"f2":     hotkey.KeyF2,
	"f3":     hotkey.KeyF3,
	"f4":     hotkey.KeyF4,
	"f5":     hotkey.KeyF5,
	"f6":     hotkey.KeyF6,
	"f7":     hotkey.KeyF7,
	"f8":     hotkey.KeyF8,
	"f9":     hotkey.KeyF9,
	"f10":    hotkey.KeyF10,
	"f11":    hotkey.KeyF11,
	"f12":    hotkey.KeyF12,
}
