// SPDX-License-Identifier: ice License 1.0

package model

import (
	"github.com/cockroachdb/errors"
	"github.com/mailru/easyjson"
	jwriter "github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"
)

type (
	EnvelopeType string

	// Envelope is a client to relay frame.
	Envelope interface {
		Label() string
		MarshalJSON() ([]byte, error)
	}

	EventEnvelope struct {
		Event *Event
	}

	ReqEnvelope struct {
		SubscriptionID string
		Filters
	}

	CloseEnvelope struct {
		SubscriptionID string
	}
)

const (
	EnvelopeTypeEvent  EnvelopeType = "EVENT"
	EnvelopeTypeReq    EnvelopeType = "REQ"
	EnvelopeTypeCount  EnvelopeType = "COUNT"
	EnvelopeTypeNotice EnvelopeType = "NOTICE"
	EnvelopeTypeEOSE   EnvelopeType = "EOSE"
	EnvelopeTypeOK     EnvelopeType = "OK"
	EnvelopeTypeAuth   EnvelopeType = "AUTH"
	EnvelopeTypeClosed EnvelopeType = "CLOSED"
	EnvelopeTypeClose  EnvelopeType = "CLOSE"
)

var ErrInvalidEnvelope = errors.New("invalid envelope")

func (*EventEnvelope) Label() string {
	return string(EnvelopeTypeEvent)
}

func (v *EventEnvelope) MarshalJSON() ([]byte, error) {
	if v.Event == nil {
		return nil, errors.Wrap(ErrInvalidEnvelope, "EVENT envelope without event")
	}
	w := jwriter.Writer{NoEscapeHTML: true}
	w.RawString(`["EVENT",`)
	eventMarshalEasyJSON(&w, v.Event)
	w.RawByte(']')

	return w.Buffer.BuildBytes(), w.Error
}

func (v *EventEnvelope) UnmarshalJSON(data []byte) error {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 2 || arr[0].Str != string(EnvelopeTypeEvent) {
		return errors.Wrap(ErrInvalidEnvelope, "failed to decode EVENT envelope: missing event")
	}
	ev := &Event{Kind: KindUnset}
	if err := easyjson.Unmarshal([]byte(arr[len(arr)-1].Raw), ev); err != nil {
		return errors.Wrap(err, "failed to decode EVENT envelope")
	}
	v.Event = ev

	return nil
}

func (*ReqEnvelope) Label() string {
	return string(EnvelopeTypeReq)
}

func (v *ReqEnvelope) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	arr := r.Array()
	if len(arr) < 3 || arr[0].Str != string(EnvelopeTypeReq) {
		return errors.Wrap(ErrInvalidEnvelope, "failed to decode REQ envelope: missing filters")
	}
	v.SubscriptionID = arr[1].Str
	v.Filters = make(Filters, len(arr)-2)
	f := 0
	for i := 2; i < len(arr); i++ {
		if err := easyjson.Unmarshal([]byte(arr[i].Raw), &v.Filters[f]); err != nil {
			return errors.Wrapf(err, "on filter %d", f)
		}
		f++
	}

	return nil
}

func (v *ReqEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	w.RawString(`["REQ",`)
	w.String(v.SubscriptionID)
	for i := range v.Filters {
		w.RawByte(',')
		v.Filters[i].MarshalEasyJSON(&w)
	}
	w.RawByte(']')

	return w.Buffer.BuildBytes(), w.Error
}

func (v *ReqEnvelope) String() string {
	data, _ := v.MarshalJSON()
	return string(data)
}

func (*CloseEnvelope) Label() string {
	return string(EnvelopeTypeClose)
}

func (v *CloseEnvelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	w.RawString(`["CLOSE",`)
	w.String(v.SubscriptionID)
	w.RawByte(']')

	return w.Buffer.BuildBytes(), w.Error
}

func (v *CloseEnvelope) UnmarshalJSON(data []byte) error {
	arr := gjson.ParseBytes(data).Array()
	if len(arr) < 2 || arr[0].Str != string(EnvelopeTypeClose) {
		return errors.Wrap(ErrInvalidEnvelope, "failed to decode CLOSE envelope: missing subscription id")
	}
	v.SubscriptionID = arr[1].Str

	return nil
}
