// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package viewer

// ButtonLabel is the tooltip of the transcription sidebar button.
const ButtonLabel = "EDA Transcriptions"

// openCompanionWindowKey is the translation key of sidebar button tooltips.
const openCompanionWindowKey = "openCompanionWindow"

// Button is a sidebar button that opens a companion window.
type Button struct {
	// Value is the companion window key the button opens.
	Value string
}

// TranscriptionButton opens the transcription panel.
var TranscriptionButton = Button{Value: CompanionWindowKey}

// SidebarButtons returns the buttons to show in a window's sidebar. When the
// window has transcriptions only the transcription button is shown;
// otherwise the plugin buttons are left as they are.
func SidebarButtons(transcriptions []string, pluginButtons []Button) []Button {
	if len(transcriptions) > 0 {
		return []Button{TranscriptionButton}
	}
	return pluginButtons
}

// TranslateFunc translates a key with a context argument.
type TranslateFunc func(key, context string) string

// Translate labels the transcription button's tooltip and defers every
// other key to fallback. A nil fallback returns the key unchanged.
func Translate(fallback TranslateFunc) TranslateFunc {
	return func(key, context string) string {
		if key == openCompanionWindowKey && context == CompanionWindowKey {
			return ButtonLabel
		}
		if fallback == nil {
			return key
		}
		return fallback(key, context)
	}
}
