// Package tray provides the menu bar icon for Mudra: recognition and
// autocorrect toggles plus a live view of the word being spelled.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

const maxTitleLen = 24

// Handlers receive menu clicks. Nil handlers are skipped.
type Handlers struct {
	// Toggle gets the new recognition state.
	Toggle func(enabled bool)
	// Autocorrect gets the new checkbox state.
	Autocorrect func(enabled bool)
	Clear       func()
	Settings    func()
	// Quit runs before the tray loop exits.
	Quit func()
}

// Tray is the menu bar icon. Its setters may be called from any goroutine,
// before or after Run.
type Tray struct {
	handlers Handlers

	mu          sync.Mutex
	enabled     bool
	autocorrect bool
	buffer      string
	lastWord    string
	items       *menu
}

type menu struct {
	toggle, autocorrect, buffer, lastWord *systray.MenuItem
	clear, settings, quit                 *systray.MenuItem
}

// New returns a tray with recognition enabled.
func New(h Handlers, autocorrect bool) *Tray {
	return &Tray{handlers: h, enabled: true, autocorrect: autocorrect}
}

// Run shows the icon and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.build, func() {})
}

// Quit removes the icon and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) build() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Fingerspelling")

	t.mu.Lock()
	m := &menu{}
	m.toggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle recognition")
	m.autocorrect = systray.AddMenuItemCheckbox("Autocorrect", "Correct words against the dictionary", t.autocorrect)
	systray.AddSeparator()
	m.buffer = systray.AddMenuItem(bufferTitle(t.buffer), "Letters of the word being spelled")
	m.buffer.Disable()
	m.lastWord = systray.AddMenuItem(lastWordTitle(t.lastWord), "Last committed word")
	m.lastWord.Disable()
	m.clear = systray.AddMenuItem("Clear Text", "Discard the current word and history")
	systray.AddSeparator()
	m.settings = systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	m.quit = systray.AddMenuItem("Quit", "Quit Mudra")
	t.items = m
	t.mu.Unlock()

	go t.listen(m)
}

func (t *Tray) listen(m *menu) {
	for {
		select {
		case <-m.toggle.ClickedCh:
			t.toggle()
		case <-m.autocorrect.ClickedCh:
			t.flipAutocorrect()
		case <-m.clear.ClickedCh:
			call(t.handlers.Clear)
		case <-m.settings.ClickedCh:
			call(t.handlers.Settings)
		case <-m.quit.ClickedCh:
			call(t.handlers.Quit)
			systray.Quit()
			return
		}
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// toggle flips recognition. Handlers run outside the lock.
func (t *Tray) toggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.items != nil {
		t.items.toggle.SetTitle(toggleTitle(enabled))
	}
	t.mu.Unlock()

	if t.handlers.Toggle != nil {
		t.handlers.Toggle(enabled)
	}
}

func (t *Tray) flipAutocorrect() {
	t.mu.Lock()
	enabled := !t.autocorrect
	t.setAutocorrectLocked(enabled)
	t.mu.Unlock()

	if t.handlers.Autocorrect != nil {
		t.handlers.Autocorrect(enabled)
	}
}

// SetAutocorrect updates the checkbox without calling the handler.
func (t *Tray) SetAutocorrect(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setAutocorrectLocked(enabled)
}

func (t *Tray) setAutocorrectLocked(enabled bool) {
	t.autocorrect = enabled
	if t.items == nil {
		return
	}
	if enabled {
		t.items.autocorrect.Check()
	} else {
		t.items.autocorrect.Uncheck()
	}
}

// SetBuffer shows the letters of the word being spelled. Unchanged text is
// not redrawn, so it is cheap to call on every tick.
func (t *Tray) SetBuffer(letters string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if letters == t.buffer {
		return
	}
	t.buffer = letters
	if t.items != nil {
		t.items.buffer.SetTitle(bufferTitle(letters))
	}
}

// SetLastWord shows the last committed word.
func (t *Tray) SetLastWord(word string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastWord = word
	if t.items != nil {
		t.items.lastWord.SetTitle(lastWordTitle(word))
	}
}

func (t *Tray) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Tray) Autocorrect() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.autocorrect
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func bufferTitle(letters string) string {
	if letters == "" {
		return "Spelling: -"
	}
	return "Spelling: " + truncate(letters)
}

func lastWordTitle(word string) string {
	if word == "" {
		return "Last: none"
	}
	return "Last: " + truncate(word)
}

// truncate keeps the tail of long text, which is the part being edited.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTitleLen {
		return s
	}
	return "…" + string(r[len(r)-maxTitleLen+1:])
}
