// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcription

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UnknownEdition labels fragments whose root carries no edition name.
const UnknownEdition = "Unknown Edition"

const (
	rootClass      = "work-body"
	editionAttr    = "data-edition"
	exhibitAttr    = "data-exhibit"
	titleSelector  = "h3"
	stanzaSelector = ".stanza"
	spacerStyle    = "height: 2em;"
)

// ErrNoRoot is returned by Merge when none of the fragments contains a
// transcription root element.
var ErrNoRoot = errors.New("no transcription root element")

// EditionName returns the data-edition value of the fragment's transcription
// root, or UnknownEdition when the root or the attribute is missing or empty.
func EditionName(fragment string) string {
	root, ok := parseRoot(fragment)
	if !ok {
		return UnknownEdition
	}
	if name := root.AttrOr(editionAttr, ""); name != "" {
		return name
	}
	return UnknownEdition
}

// Editions returns the edition label of each transcription, in order.
func Editions(transcriptions []string) []string {
	labels := make([]string, len(transcriptions))
	for i, t := range transcriptions {
		labels[i] = EditionName(t)
	}
	return labels
}

// Merge combines fragments of one edition into a single transcription root.
// The root takes its tag and its edition and exhibit attributes from the
// first fragment. Each fragment contributes a copy of its title followed by
// copies of its stanzas, and a spacer separates consecutive fragments.
// Fragments without a transcription root contribute nothing.
func Merge(fragments []string) (string, error) {
	roots := make([]*goquery.Selection, 0, len(fragments))
	for _, f := range fragments {
		if root, ok := parseRoot(f); ok {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 {
		return "", ErrNoRoot
	}

	merged := newRoot(roots[0])
	for i, root := range roots {
		if title := root.Find(titleSelector).First(); title.Length() > 0 {
			appendClones(merged, title)
		}
		appendClones(merged, root.Find(stanzaSelector))
		if i < len(roots)-1 {
			merged.AppendChild(newSpacer())
		}
	}

	var b strings.Builder
	if err := html.Render(&b, merged); err != nil {
		return "", fmt.Errorf("rendering merged transcription: %w", err)
	}
	return b.String(), nil
}

// parseRoot parses fragment as an HTML document and returns its first
// transcription root element.
func parseRoot(fragment string) (*goquery.Selection, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, false
	}
	root := doc.Find("." + rootClass).First()
	if root.Length() == 0 {
		return nil, false
	}
	return root, true
}

func newRoot(first *goquery.Selection) *html.Node {
	src := first.Nodes[0]
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     src.Data,
		DataAtom: src.DataAtom,
		Attr:     []html.Attribute{{Key: "class", Val: rootClass}},
	}
	for _, key := range []string{editionAttr, exhibitAttr} {
		if v := first.AttrOr(key, ""); v != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: key, Val: v})
		}
	}
	return n
}

func newSpacer() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "style", Val: spacerStyle}},
	}
}

func appendClones(parent *html.Node, sel *goquery.Selection) {
	for _, n := range sel.Clone().Nodes {
		parent.AppendChild(n)
	}
}
