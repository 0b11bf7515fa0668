package prompt

import (
	"regexp"
	"strings"
)

// DefaultPrompt is used when nothing else produces a usable instruction:
// no tools selected, no custom prompt, and the build came out empty.
const DefaultPrompt = "Edit the image preserving quality and visual coherence"

// minCustomPromptLen is the minimum trimmed length (in runes) for a
// user-supplied custom prompt to override the built one.  Anything
// shorter is treated as noise and ignored.
const minCustomPromptLen = 20

var (
	unresolvedRe = regexp.MustCompile(`\{\{\s*\w+\s*\}\}`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// Result is the outcome of a build.  FullyResolved is true when every
// placeholder in the base prompt was substituted; callers use it to
// decide whether the prompt is specific enough to send as-is.
type Result struct {
	Prompt        string
	FullyResolved bool
}

// Build merges user selections into a tool's base prompt.  For each
// option with a non-empty selected value, the option's prompt fragment
// has its type placeholder replaced by the value and the fragment is
// then substituted at {{ <name> }} in the base prompt.  Placeholders
// left over at the end are stripped and the result is trimmed.
func Build(basePrompt string, cfg CustomConfig, selected map[string]string) Result {
	out := basePrompt
	for _, opt := range cfg.Options {
		val := selected[opt.Name]
		if val == "" {
			continue
		}
		fragment := opt.Prompt
		if fragment == "" {
			fragment = val
		} else {
			fragment = strings.ReplaceAll(fragment, opt.placeholder(), val)
		}
		out = namePlaceholderRe(opt.Name).ReplaceAllLiteralString(out, fragment)
	}
	resolved := !unresolvedRe.MatchString(out)
	out = unresolvedRe.ReplaceAllString(out, "")
	out = multiSpaceRe.ReplaceAllString(out, " ")
	return Result{Prompt: strings.TrimSpace(out), FullyResolved: resolved}
}

// namePlaceholderRe matches {{ name }} with any interior whitespace.
func namePlaceholderRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(name) + `\s*\}\}`)
}

// ToolPrompt is one tool's contribution to a combined prompt.
type ToolPrompt struct {
	ToolName string
	Prompt   string
}

// Combine joins per-tool prompts into a single instruction.  With one
// tool the prompt passes through untouched; with several, each part is
// prefixed by its tool name so the model can tell the operations apart.
func Combine(parts []ToolPrompt) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0].Prompt)
	}
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		text := strings.TrimSpace(p.Prompt)
		if text == "" {
			continue
		}
		segs = append(segs, p.ToolName+": "+strings.TrimSuffix(text, "."))
	}
	return strings.Join(segs, ". ")
}

// Override reports whether a user-supplied custom prompt should replace
// the built prompt, and returns it trimmed when it does.
func Override(custom string) (string, bool) {
	trimmed := strings.TrimSpace(custom)
	if len([]rune(trimmed)) < minCustomPromptLen {
		return "", false
	}
	return trimmed, true
}
