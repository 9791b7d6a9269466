package bot

import (
	"fmt"
	"strings"
)

// DefaultWelcomeTemplate greets a new member by username.
const DefaultWelcomeTemplate = "Welcome @{}"

const templateSlot = "{}"

var ErrInvalidTemplate = fmt.Errorf("bot: welcome template must contain exactly one %q slot", templateSlot)

// WelcomeTemplate is a single-slot text template. Parsing validates the slot
// count up front so a malformed template is rejected when it is set, not when
// the next member joins.
type WelcomeTemplate struct {
	raw string
}

func ParseWelcomeTemplate(raw string) (WelcomeTemplate, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, templateSlot) != 1 {
		return WelcomeTemplate{}, ErrInvalidTemplate
	}
	return WelcomeTemplate{raw: raw}, nil
}

func (t WelcomeTemplate) Render(username string) string {
	return strings.Replace(t.raw, templateSlot, username, 1)
}

func (t WelcomeTemplate) String() string {
	return t.raw
}
