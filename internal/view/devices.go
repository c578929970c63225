// Package view maps server snapshots to the representation the dashboard
// draws. Everything here is pure: no network, no timers, no terminal.
package view

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bkonkle/fleetdash/internal/fleet"
)

// UDIDPrefixLen is how many characters of a UDID a card shows.
const UDIDPrefixLen = 16

// Action is the label of a card's primary control.
type Action string

const (
	// ActionStart starts a stopped device.
	ActionStart Action = "Start"
	// ActionStop stops a running or starting device.
	ActionStop Action = "Stop"
)

// Placeholder is shown instead of cards when the list is empty.
type Placeholder struct {
	Title string
	Hint  string
}

// EmptyPlaceholder is the fixed "no devices" state.
var EmptyPlaceholder = Placeholder{
	Title: "No Devices Yet",
	Hint:  `Press "a" to add a device`,
}

// Card is the drawn form of one device.
type Card struct {
	// Key is the device index; actions on the card target it.
	Key        int
	Name       string
	UDID       string
	Port       int
	Status     fleet.Status
	StatusText string
	Primary    Action
	CanDelete  bool
	Stats      fleet.Stats
}

// DeviceList is the drawn form of the device list. Exactly one of Empty and
// Cards is set.
type DeviceList struct {
	Empty *Placeholder
	Cards []Card
}

// IsEmpty reports whether the placeholder is shown.
func (l DeviceList) IsEmpty() bool {
	return l.Empty != nil
}

// Card returns the card keyed by index.
func (l DeviceList) Card(index int) (Card, bool) {
	for _, c := range l.Cards {
		if c.Key == index {
			return c, true
		}
	}
	return Card{}, false
}

// RenderDeviceList maps a device list snapshot to cards.
func RenderDeviceList(devices []fleet.Device) DeviceList {
	if len(devices) == 0 {
		p := EmptyPlaceholder
		return DeviceList{Empty: &p}
	}

	cards := make([]Card, 0, len(devices))
	for _, d := range devices {
		cards = append(cards, renderCard(d))
	}
	return DeviceList{Cards: cards}
}

func renderCard(d fleet.Device) Card {
	card := Card{
		Key:        d.Index,
		Name:       d.Name,
		UDID:       ShortUDID(d.UDID),
		Port:       d.AppiumPort,
		Status:     d.Status,
		StatusText: StatusText(d.Status),
		Primary:    ActionStart,
		// Only a stopped device can be deleted; anything else may still be active.
		CanDelete: d.Status == fleet.StatusStopped,
	}
	if d.Status.IsActive() {
		card.Primary = ActionStop
	}
	if d.Stats != nil {
		card.Stats = *d.Stats
	}
	return card
}

// StatusText upper-cases the first character of the status.
func StatusText(s fleet.Status) string {
	str := string(s)
	r, size := utf8.DecodeRuneInString(str)
	if r == utf8.RuneError {
		return str
	}
	return string(unicode.ToUpper(r)) + str[size:]
}

// ShortUDID shows the first UDIDPrefixLen characters followed by "...".
func ShortUDID(udid string) string {
	runes := []rune(udid)
	if len(runes) > UDIDPrefixLen {
		runes = runes[:UDIDPrefixLen]
	}
	var sb strings.Builder
	sb.WriteString(string(runes))
	sb.WriteString("...")
	return sb.String()
}
