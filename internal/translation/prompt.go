package translation

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// WholeFilePrompt instructs the model to return a complete SRT document.
const WholeFilePrompt = `You are a professional subtitle translator. Translate the SRT document you are given from {source} into {target}.
Keep every cue number and timing line exactly as given. Translate with the surrounding dialogue in mind so lines read naturally.
Output only the translated SRT document: cue numbers, timing lines and translated text, nothing else.`

const wholeFileUserPreamble = "Translate the following SRT document and reply with the complete translated document.\n\n"

// LanguageName renders a BCP 47 tag as an English language name for use in
// prompts. Unrecognized values are returned unchanged.
func LanguageName(value string) string {
	value = strings.TrimSpace(value)
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return value
}

// RenderPrompt fills the {source}, {target} and {separator} placeholders.
func RenderPrompt(template, source, target, sep string) string {
	return strings.NewReplacer(
		"{source}", LanguageName(source),
		"{target}", LanguageName(target),
		"{separator}", sep,
	).Replace(template)
}
