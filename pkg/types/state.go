// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// ManifestState is a read-only snapshot of viewer state: the open windows and
// the manifests they point into. Any field may be absent.
type ManifestState struct {
	// Windows maps window identifiers to window records in document order.
	Windows Windows `json:"windows" yaml:"windows"`

	// Manifests maps manifest identifiers to loaded manifest records.
	Manifests map[string]ManifestRecord `json:"manifests" yaml:"manifests"`
}

// Window is a viewer pane's pointer into a manifest.
type Window struct {
	ManifestID string `json:"manifestId" yaml:"manifestId"`
	CanvasID   string `json:"canvasId" yaml:"canvasId"`
}

// ManifestRecord wraps a loaded manifest. JSON is nil while the manifest has
// not been fetched or failed to load.
type ManifestRecord struct {
	JSON *ManifestDocument `json:"json,omitempty" yaml:"json,omitempty"`
}

// ManifestDocument is the subset of a IIIF Presentation 3 manifest read by
// the resolver. Label is kept raw because its shape differs between
// presentation API versions.
type ManifestDocument struct {
	ID    string          `json:"id,omitempty" yaml:"id,omitempty"`
	Type  string          `json:"type,omitempty" yaml:"type,omitempty"`
	Label json.RawMessage `json:"label,omitempty" yaml:"-"`
	Items []Canvas        `json:"items,omitempty" yaml:"items,omitempty"`
}

// Canvas is one page or surface of a manifest.
type Canvas struct {
	ID          string           `json:"id" yaml:"id"`
	Type        string           `json:"type,omitempty" yaml:"type,omitempty"`
	Annotations []AnnotationPage `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// AnnotationPage is one batch of annotations on a canvas.
type AnnotationPage struct {
	ID    string       `json:"id,omitempty" yaml:"id,omitempty"`
	Type  string       `json:"type,omitempty" yaml:"type,omitempty"`
	Items []Annotation `json:"items,omitempty" yaml:"items,omitempty"`
}

// Annotation is a single annotation. Body is nil when the annotation has none.
type Annotation struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Body *Body  `json:"body,omitempty" yaml:"body,omitempty"`
}

// Body is an embedded annotation body. Bodies that are not objects, and
// format or value members that are not strings, decode to empty fields.
type Body struct {
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
}

// UnmarshalJSON decodes a body object without failing on foreign shapes such
// as body arrays or choice bodies.
func (b *Body) UnmarshalJSON(data []byte) error {
	*b = Body{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	b.Format = jsonString(fields["format"])
	b.Value = jsonString(fields["value"])
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (b *Body) UnmarshalYAML(node *yaml.Node) error {
	*b = Body{}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode || val.Tag != "!!str" {
			continue
		}
		switch key.Value {
		case "format":
			b.Format = val.Value
		case "value":
			b.Value = val.Value
		}
	}
	return nil
}

func jsonString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// Windows is an insertion-ordered mapping of window identifiers to windows.
// Decoding keeps the order keys appear in the source document; a repeated key
// keeps its first position and takes the last value.
type Windows struct {
	order []string
	byID  map[string]Window
}

// NewWindows returns an empty window mapping.
func NewWindows() Windows {
	return Windows{byID: make(map[string]Window)}
}

// Set adds or replaces the window stored under id.
func (w *Windows) Set(id string, win Window) {
	if w.byID == nil {
		w.byID = make(map[string]Window)
	}
	if _, ok := w.byID[id]; !ok {
		w.order = append(w.order, id)
	}
	w.byID[id] = win
}

// Get returns the window stored under id.
func (w Windows) Get(id string) (Window, bool) {
	win, ok := w.byID[id]
	return win, ok
}

// First returns the earliest inserted window.
func (w Windows) First() (string, Window, bool) {
	if len(w.order) == 0 {
		return "", Window{}, false
	}
	id := w.order[0]
	return id, w.byID[id], true
}

// IDs returns the window identifiers in order.
func (w Windows) IDs() []string {
	return append([]string(nil), w.order...)
}

// Len returns the number of windows.
func (w Windows) Len() int {
	return len(w.order)
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (w *Windows) UnmarshalJSON(data []byte) error {
	*w = NewWindows()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding windows: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding windows: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding windows: %w", err)
		}
		id, _ := tok.(string)

		var win Window
		if err := dec.Decode(&win); err != nil {
			return fmt.Errorf("decoding window %q: %w", id, err)
		}
		w.Set(id, win)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decoding windows: %w", err)
	}
	return nil
}

// MarshalJSON encodes the windows as a JSON object in order.
func (w Windows) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range w.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(w.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping, keeping key order.
func (w *Windows) UnmarshalYAML(node *yaml.Node) error {
	*w = NewWindows()
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("decoding windows: expected mapping at line %d", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var win Window
		if err := node.Content[i+1].Decode(&win); err != nil {
			return fmt.Errorf("decoding window %q: %w", id, err)
		}
		w.Set(id, win)
	}
	return nil
}

// MarshalYAML encodes the windows as a YAML mapping in order.
func (w Windows) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, id := range w.order {
		var val yaml.Node
		if err := val.Encode(w.byID[id]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id},
			&val,
		)
	}
	return node, nil
}
