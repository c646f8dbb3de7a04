// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package viewer

import (
	"strings"

	"github.com/pdiddy/eda-transcribe/internal/transcription"
)

const (
	// CompanionWindowKey identifies the transcription companion window. The
	// sidebar button and the panel must agree on it.
	CompanionWindowKey = "edaTranscription"

	// PanelTitle is the companion window title.
	PanelTitle = "EDA Transcription"

	// EmptyMessage is shown when the current canvas has no transcriptions.
	EmptyMessage = "Emily Dickinson Archive transcriptions are not available for this manuscript."
)

// Classes of the panel's content section. The display toggles add the
// linebreak and edits classes, which the stylesheet keys on.
const (
	SectionClass    = "eda-transcription-section"
	LinebreaksClass = "show-linebreaks"
	HideEditsClass  = "hide-edits"
)

// Panel is the state of the transcription panel for one window: the
// resolved transcriptions, the edition currently selected, and the two
// display toggles.
type Panel struct {
	transcriptions []string
	labels         []string
	selected       int
	showLinebreaks bool
	hideEdits      bool
}

// NewPanel creates a panel showing the first transcription with physical
// line breaks on and edits visible.
func NewPanel(transcriptions []string) *Panel {
	return &Panel{
		transcriptions: transcriptions,
		labels:         transcription.Editions(transcriptions),
		showLinebreaks: true,
	}
}

// ShowLinebreaks reports whether physical line breaks are shown.
func (p *Panel) ShowLinebreaks() bool {
	return p.showLinebreaks
}

// SetShowLinebreaks toggles the physical line breaks.
func (p *Panel) SetShowLinebreaks(on bool) {
	p.showLinebreaks = on
}

// HideEdits reports whether editorial insertions are hidden.
func (p *Panel) HideEdits() bool {
	return p.hideEdits
}

// SetHideEdits toggles editorial insertions.
func (p *Panel) SetHideEdits(on bool) {
	p.hideEdits = on
}

// SectionClasses returns the space-separated class list of the content
// section for the current toggles.
func (p *Panel) SectionClasses() string {
	classes := []string{SectionClass}
	if p.showLinebreaks {
		classes = append(classes, LinebreaksClass)
	}
	if p.hideEdits {
		classes = append(classes, HideEditsClass)
	}
	return strings.Join(classes, " ")
}

// Empty reports whether there is nothing to show.
func (p *Panel) Empty() bool {
	return len(p.transcriptions) == 0
}

// Message returns the empty-state message, or "" when transcriptions exist.
func (p *Panel) Message() string {
	if p.Empty() {
		return EmptyMessage
	}
	return ""
}

// Options returns the edition selector labels in transcription order.
func (p *Panel) Options() []string {
	return append([]string(nil), p.labels...)
}

// SelectorDisabled reports whether the edition selector is inert. It is
// hidden when empty and disabled with a single edition.
func (p *Panel) SelectorDisabled() bool {
	return len(p.transcriptions) <= 1
}

// Select chooses the transcription at index i. Out-of-range indexes are
// ignored and reported as false.
func (p *Panel) Select(i int) bool {
	if i < 0 || i >= len(p.transcriptions) {
		return false
	}
	p.selected = i
	return true
}

// Selected returns the selected index.
func (p *Panel) Selected() int {
	return p.selected
}

// Current returns the selected transcription HTML, or "" when empty.
func (p *Panel) Current() string {
	if p.Empty() {
		return ""
	}
	return p.transcriptions[p.selected]
}
