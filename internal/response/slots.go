package response

import (
	"regexp"
	"strings"
)

var slotPattern = regexp.MustCompile(`\{[a-z0-9_]+\}`)

// FillSlots substitutes {name} placeholders and drops any left without a value.
func FillSlots(template string, values map[string]string) string {
	out := slotPattern.ReplaceAllStringFunc(template, func(slot string) string {
		return values[slot[1:len(slot)-1]]
	})
	return collapse(out)
}

// ToolSlots exposes a tooling context as {tool}, {tool2} and {tools}.
func ToolSlots(tools []string) map[string]string {
	values := map[string]string{}
	if len(tools) > 0 {
		values["tool"] = tools[0]
	}
	if len(tools) > 1 {
		values["tool2"] = tools[1]
	}
	values["tools"] = joinTools(tools)
	return values
}

func joinTools(tools []string) string {
	switch len(tools) {
	case 0:
		return ""
	case 1:
		return tools[0]
	case 2:
		return tools[0] + " and " + tools[1]
	}
	return strings.Join(tools[:len(tools)-1], ", ") + " and " + tools[len(tools)-1]
}
