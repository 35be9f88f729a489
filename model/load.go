// SPDX-License-Identifier: ice License 1.0

package model

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Load copies the recognized keys of fields onto the event; unknown keys are ignored and absent ones keep their value.
func (e *Event) Load(fields map[string]any) error {
	loaded := *e
	if _, found := fields["tags"]; found {
		loaded.Tags = nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &loaded,
		TagName: "json",
	})
	if err != nil {
		return errors.Wrap(err, "failed to build event decoder")
	}
	if err = decoder.Decode(fields); err != nil {
		return errors.Wrap(err, "failed to load event")
	}
	if err = loaded.checkLoaded(); err != nil {
		return err
	}
	*e = loaded

	return nil
}

// LoadEvent is Load applied to a fresh event whose kind is KindUnset.
func LoadEvent(fields map[string]any) (*Event, error) {
	e := &Event{Kind: KindUnset}
	if err := e.Load(fields); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Event) checkLoaded() error {
	if e.ID != "" {
		if err := checkHex("id", e.ID, idHexSize); err != nil {
			return err
		}
	}
	if e.PubKey != "" {
		if err := checkHex("pubkey", e.PubKey, idHexSize); err != nil {
			return err
		}
	}
	if e.Sig != "" {
		if err := checkHex("sig", e.Sig, sigHexSize); err != nil {
			return err
		}
	}

	return nil
}
