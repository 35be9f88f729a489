// SPDX-License-Identifier: ice License 1.0

package model

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/cockroachdb/errors"
)

type (
	// Metadata is the accessor layer over a kind 0 event whose content is a JSON object.
	Metadata struct {
		event *Event
	}
	ProfileMetadataContent struct {
		Name    string `json:"name"`
		About   string `json:"about"`
		Picture string `json:"picture"`
	}
)

const (
	MetadataName    = "name"
	MetadataAbout   = "about"
	MetadataPicture = "picture"
	MetadataNIP05   = "nip05"
)

var nip05Format = regexp.MustCompile(`^([A-Za-z0-9_]+[.\-_])*[A-Za-z0-9_]+@[A-Za-z0-9-]+(\.[A-Za-z]{2,})+$`)

func (e *Event) Metadata() (*Metadata, error) {
	if e.Kind != KindSetMetadata {
		return nil, errors.Wrapf(ErrWrongKind, "metadata lives in kind %v events, got %v", KindSetMetadata, e.Kind)
	}

	return &Metadata{event: e}, nil
}

func (m *Metadata) Event() *Event {
	return m.event
}

func (m *Metadata) Name() string    { return m.Get(MetadataName) }
func (m *Metadata) About() string   { return m.Get(MetadataAbout) }
func (m *Metadata) Picture() string { return m.Get(MetadataPicture) }
func (m *Metadata) NIP05() string   { return m.Get(MetadataNIP05) }

func (m *Metadata) SetName(name string) error       { return m.Add(MetadataName, name) }
func (m *Metadata) SetAbout(about string) error     { return m.Add(MetadataAbout, about) }
func (m *Metadata) SetPicture(picture string) error { return m.Add(MetadataPicture, picture) }

func (m *Metadata) SetNIP05(identifier string) error {
	if !nip05Format.MatchString(identifier) {
		return errors.Wrapf(ErrNip05Format, "%q is not an internet identifier", identifier)
	}

	return m.Add(MetadataNIP05, identifier)
}

// Get is the string value under key, empty when absent, not a string, or when the content is not a JSON object.
func (m *Metadata) Get(key string) string {
	fields, err := m.fields()
	if err != nil {
		return ""
	}
	value, _ := fields[key].(string)

	return value
}

func (m *Metadata) Add(key string, value any) error {
	return m.AddValues(map[string]any{key: value})
}

// AddValues merges values into the content, keeping every other key.
func (m *Metadata) AddValues(values map[string]any) error {
	if m.event.IsSigned() {
		return errors.Wrap(ErrEventSigned, "can't change metadata of a signed event")
	}
	fields, err := m.fields()
	if err != nil {
		return err
	}
	for k, v := range values {
		fields[k] = v
	}
	content, err := marshalContent(fields)
	if err != nil {
		return err
	}
	m.event.Content = content

	return nil
}

func (m *Metadata) fields() (map[string]any, error) {
	fields := make(map[string]any)
	if m.event.Content == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(m.event.Content), &fields); err != nil {
		return nil, errors.Wrap(err, "metadata content is not a json object")
	}
	if fields == nil {
		fields = make(map[string]any)
	}

	return fields, nil
}

func marshalContent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", errors.Wrap(err, "failed to encode content")
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
