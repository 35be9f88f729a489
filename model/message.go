// SPDX-License-Identifier: ice License 1.0

package model

import (
	"github.com/cockroachdb/errors"
	"github.com/mailru/easyjson"
	"github.com/tidwall/gjson"
)

type (
	// RelayMessage is a classified relay to client frame. Unknown labels are kept with their raw bytes only.
	RelayMessage struct {
		Label          EnvelopeType
		SubscriptionID string
		Event          *Event
		EventID        string
		Message        string
		Raw            []byte
		Count          int64
		Accepted       bool
	}
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrParseMessage   = errors.New("parse message")
)

func ParseRelayMessage(message []byte) (*RelayMessage, error) {
	if !gjson.ValidBytes(message) {
		return nil, errors.Wrapf(ErrParseMessage, "invalid json: %.64q", message)
	}
	r := gjson.ParseBytes(message)
	if !r.IsArray() {
		return nil, errors.Wrapf(ErrUnknownMessage, "not an array: %.64q", message)
	}
	arr := r.Array()
	if len(arr) == 0 || arr[0].Type != gjson.String {
		return nil, errors.Wrapf(ErrUnknownMessage, "missing label: %.64q", message)
	}
	msg := &RelayMessage{Label: EnvelopeType(arr[0].Str), Raw: message}
	switch msg.Label {
	case EnvelopeTypeEvent:
		if len(arr) < 2 {
			return nil, errors.Wrap(ErrParseMessage, "EVENT without event")
		}
		if len(arr) > 2 {
			msg.SubscriptionID = arr[1].Str
		}
		msg.Event = &Event{Kind: KindUnset}
		if err := easyjson.Unmarshal([]byte(arr[len(arr)-1].Raw), msg.Event); err != nil {
			return nil, errors.Wrapf(ErrParseMessage, "EVENT: %v", err)
		}
	case EnvelopeTypeOK:
		if len(arr) < 3 || !arr[2].IsBool() {
			return nil, errors.Wrap(ErrParseMessage, "OK must carry an event id and a boolean")
		}
		msg.EventID, msg.Accepted = arr[1].Str, arr[2].Bool()
		if len(arr) > 3 {
			msg.Message = arr[3].Str
		}
	case EnvelopeTypeNotice, EnvelopeTypeAuth:
		if len(arr) < 2 {
			return nil, errors.Wrapf(ErrParseMessage, "%v without message", msg.Label)
		}
		msg.Message = arr[1].Str
	case EnvelopeTypeEOSE:
		if len(arr) < 2 {
			return nil, errors.Wrap(ErrParseMessage, "EOSE without subscription id")
		}
		msg.SubscriptionID = arr[1].Str
	case EnvelopeTypeClosed:
		if len(arr) < 2 {
			return nil, errors.Wrap(ErrParseMessage, "CLOSED without subscription id")
		}
		msg.SubscriptionID = arr[1].Str
		if len(arr) > 2 {
			msg.Message = arr[2].Str
		}
	case EnvelopeTypeCount:
		if len(arr) < 3 {
			return nil, errors.Wrap(ErrParseMessage, "COUNT without result")
		}
		msg.SubscriptionID, msg.Count = arr[1].Str, arr[2].Get("count").Int()
	}

	return msg, nil
}
