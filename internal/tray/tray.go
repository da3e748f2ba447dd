// Package tray provides the system tray menu for nodwatch.
package tray

import (
	"sync"
	"time"

	"github.com/getlantern/systray"
)

const (
	titleListening = "● Listening"
	titlePaused    = "○ Paused"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(listening bool)
	onDashboard func()
	onQuit      func()
	listening   bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray showing the given listening state.
func New(listening bool) *Tray {
	return &Tray{
		listening: listening,
	}
}

// OnToggle sets the callback invoked when the user toggles listening. The callback
// receives the requested state.
func (t *Tray) OnToggle(fn func(listening bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback invoked by the "Open Dashboard" item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("nodwatch")
	systray.SetTooltip("nodwatch head gestures")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.listening), "Start or stop listening for gestures")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem("Last: none", "Last detected gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit nodwatch")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(listening bool) string {
	if listening {
		return titleListening
	}
	return titlePaused
}

// handleToggle flips the displayed state and reports the new one to the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.listening = !t.listening
	listening := t.listening
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(listening))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(listening)
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetListening updates the displayed listening state without invoking the toggle callback.
// It is used when the state changes elsewhere, or when a toggle request fails.
func (t *Tray) SetListening(listening bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.listening = listening
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(listening))
	}
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(name string, at time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastGesture == nil {
		return
	}
	if name == "" {
		t.menuLastGesture.SetTitle("Last: none")
		return
	}
	t.menuLastGesture.SetTitle("Last: " + name + " at " + at.Local().Format("15:04:05"))
}

// Listening returns the displayed listening state.
func (t *Tray) Listening() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listening
}
