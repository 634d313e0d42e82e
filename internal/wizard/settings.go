// internal/wizard/settings.go
package wizard

import (
	"errors"
	"time"
)

// Default working frame of the wizard page.
const DefaultWorkingFrame = "txppIframe"

// Messages are the modal texts and option labels the controller matches on.
// Modal texts are matched as prefixes.
type Messages struct {
	Verified        string
	Recalculated    string
	Processed       string
	Duplicate       string
	HeadOfHousehold string
	HouseholdMember string
	// EntryText, if set, must appear in the entry marker element during preflight.
	EntryText string
}

// DefaultMessages returns the texts used by the site.
func DefaultMessages() Messages {
	return Messages{
		Verified:        "확인완료되었습니다.",
		Recalculated:    "재계산이 완료되었습니다.",
		Processed:       "처리가 완료되었습니다",
		Duplicate:       "기존 수록자료가 존재합니다",
		HeadOfHousehold: "세대주",
		HouseholdMember: "세대원",
	}
}

// Timeouts bound every wait the controller performs.
type Timeouts struct {
	IDCheck       time.Duration
	Confirm       time.Duration
	Recalculation time.Duration
	SubmitConfirm time.Duration
	SubmitResult  time.Duration
	// Settle is the fixed delay after transitions that re-render the page.
	Settle time.Duration
}

// DefaultTimeouts returns the waits tuned against the live site.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		IDCheck:       4 * time.Second,
		Confirm:       7 * time.Second,
		Recalculation: 10 * time.Second,
		SubmitConfirm: 10 * time.Second,
		SubmitResult:  12 * time.Second,
		Settle:        time.Second,
	}
}

// Settings configure a Controller.
type Settings struct {
	Elements     Elements
	WorkingFrame string
	Messages     Messages
	Timeouts     Timeouts
}

// DefaultSettings builds settings from the default element table.
func DefaultSettings() Settings {
	el, err := NewElements(DefaultElementTable(), "")
	if err != nil {
		panic(err) // the default table is complete
	}
	return Settings{
		Elements:     el,
		WorkingFrame: DefaultWorkingFrame,
		Messages:     DefaultMessages(),
		Timeouts:     DefaultTimeouts(),
	}
}

// Validate reports the first setting a Controller cannot work with.
func (s Settings) Validate() error {
	if s.Elements.ids == nil {
		return errors.New("wizard: settings have no element table")
	}
	if s.WorkingFrame == "" {
		return errors.New("wizard: working frame id is required")
	}
	m := s.Messages
	if m.Verified == "" || m.Recalculated == "" || m.Processed == "" || m.Duplicate == "" {
		return errors.New("wizard: modal messages must not be empty")
	}
	if m.HeadOfHousehold == "" || m.HouseholdMember == "" {
		return errors.New("wizard: household option labels must not be empty")
	}
	t := s.Timeouts
	for _, d := range []time.Duration{t.IDCheck, t.Confirm, t.Recalculation, t.SubmitConfirm, t.SubmitResult} {
		if d <= 0 {
			return errors.New("wizard: modal timeouts must be positive")
		}
	}
	if t.Settle < 0 {
		return errors.New("wizard: settle delay must not be negative")
	}
	return nil
}
