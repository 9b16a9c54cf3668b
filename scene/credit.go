package scene

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CreditDisplay collects data attributions. Default credits are shown
// every frame; frame credits are gathered from the tiles drawn in the
// current frame and cleared by BeginFrame. Credits that normalize to the
// same text are shown once.
type CreditDisplay struct {
	defaults []string
	frame    []string
	seen     map[string]struct{}
}

// NewCreditDisplay returns an empty display.
func NewCreditDisplay() *CreditDisplay {
	return &CreditDisplay{seen: make(map[string]struct{})}
}

func creditKey(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// AddDefaultCredit adds a credit shown on every frame.
func (d *CreditDisplay) AddDefaultCredit(text string) {
	key := creditKey(text)
	if key == "" || slices.Contains(d.defaults, key) {
		return
	}
	d.defaults = append(d.defaults, key)
}

// AddCredit adds a credit to the current frame.
func (d *CreditDisplay) AddCredit(text string) {
	key := creditKey(text)
	if key == "" || slices.Contains(d.defaults, key) {
		return
	}
	if _, dup := d.seen[key]; dup {
		return
	}
	d.seen[key] = struct{}{}
	d.frame = append(d.frame, key)
}

// BeginFrame clears the frame credits.
func (d *CreditDisplay) BeginFrame() {
	d.frame = d.frame[:0]
	clear(d.seen)
}

// Credits returns the default credits followed by the frame credits in
// the order they were added.
func (d *CreditDisplay) Credits() []string {
	out := make([]string, 0, len(d.defaults)+len(d.frame))
	out = append(out, d.defaults...)
	return append(out, d.frame...)
}
