// SPDX-License-Identifier: ice License 1.0

package model

import (
	"strings"

	"github.com/cockroachdb/errors"
)

func (e *Event) GetTag(tagName string) Tag {
	for _, tag := range e.Tags {
		if tag.Key() == tagName {
			return tag
		}
	}

	return nil
}

func (e *Event) FindTags(key string) Tags {
	var found Tags
	for _, tag := range e.Tags {
		if tag.Key() == key {
			found = append(found, tag)
		}
	}

	return found
}

func (e *Event) PTags() Tags {
	return e.FindTags(TagPubKey)
}

func (e *Event) ETags() Tags {
	return e.FindTags(TagEvent)
}

// AllTags groups tags by key, preserving their relative order.
func (e *Event) AllTags() map[string]Tags {
	all := make(map[string]Tags)
	for _, tag := range e.Tags {
		if len(tag) > 0 {
			all[tag[0]] = append(all[tag[0]], tag)
		}
	}

	return all
}

// Reference is the index of the first tag referencing value, or -1.
func (e *Event) Reference(value string) int {
	for i, tag := range e.Tags {
		if len(tag) >= 2 && tag[1] == value {
			return i
		}
	}

	return -1
}

func (e *Event) AddTag(key string, values ...string) error {
	if e.IsSigned() {
		return errors.Wrapf(ErrEventSigned, "can't add %q tag", key)
	}
	if key == "" {
		return errors.Wrap(ErrEmptyTag, "tag key is empty")
	}
	tag := append(Tag{key}, values...)
	if key == "t" && len(tag) > 1 {
		tag[1] = strings.ToLower(tag[1]) // NIP-24.
	}
	e.Tags = append(e.Tags, tag)

	return nil
}

// AddEvent references another event; marker is kept only when it is root or reply.
func (e *Event) AddEvent(eventID, relayURL, marker string) error {
	if err := checkHex("event id", eventID, idHexSize); err != nil {
		return err
	}
	if marker == TagMarkerRoot || marker == TagMarkerReply {
		return e.AddTag(TagEvent, eventID, relayURL, marker)
	}
	if relayURL != "" {
		return e.AddTag(TagEvent, eventID, relayURL)
	}

	return e.AddTag(TagEvent, eventID)
}

func (e *Event) AddPubKey(pubkey, relayURL, petname string) error {
	if err := checkHex("pubkey", pubkey, idHexSize); err != nil {
		return err
	}
	switch {
	case petname != "":
		return e.AddTag(TagPubKey, pubkey, relayURL, petname)
	case relayURL != "":
		return e.AddTag(TagPubKey, pubkey, relayURL)
	default:
		return e.AddTag(TagPubKey, pubkey)
	}
}

// Thread resolves the root and the direct parent from marked e tags, falling back to the positional convention.
func (e *Event) Thread() (root, reply string) {
	refs := e.ETags()
	for _, tag := range refs {
		if len(tag) < 4 {
			continue
		}
		switch tag[3] {
		case TagMarkerRoot:
			root = tag[1]
		case TagMarkerReply:
			reply = tag[1]
		}
	}
	if root != "" || reply != "" {
		if reply == "" {
			reply = root
		}

		return root, reply
	}
	if len(refs) > 0 && len(refs[0]) >= 2 {
		root = refs[0][1]
		reply = root
		if last := refs[len(refs)-1]; len(last) >= 2 {
			reply = last[1]
		}
	}

	return root, reply
}
