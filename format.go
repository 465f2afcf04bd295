package console

import (
	"strings"
)

// Display placeholders recognized by Render. These are a stable contract;
// changing them is a breaking format-string change.
const (
	PlaceholderTime   = "%{time}"
	PlaceholderSource = "%{source}"
	PlaceholderBody   = "%{body}"
)

// Default display templates.
const (
	DefaultShortFormat = "%{body}"
	DefaultLongFormat  = "%{time} %{source} %{body}"
)

// Render substitutes the display placeholders in template with fields from
// msg. Each placeholder is substituted in a single non-recursive pass, time
// and source before body, so placeholder text arriving inside a body is left
// verbatim. Unmatched placeholders stay as-is. A single trailing newline is
// stripped from the body; Render does not append one.
func Render(template string, msg *Message) string {
	out := strings.ReplaceAll(template, PlaceholderTime, msg.Received.Format("15:04:05"))
	out = strings.ReplaceAll(out, PlaceholderSource, msg.Destination)
	return strings.ReplaceAll(out, PlaceholderBody, strings.TrimSuffix(msg.Body, "\n"))
}
