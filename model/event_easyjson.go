// SPDX-License-Identifier: ice License 1.0

package model

import (
	jlexer "github.com/mailru/easyjson/jlexer"
	jwriter "github.com/mailru/easyjson/jwriter"
)

func eventUnmarshalEasyJSON(in *jlexer.Lexer, out *Event) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "id":
			out.ID = string(in.String())
		case "pubkey":
			out.PubKey = string(in.String())
		case "created_at":
			out.CreatedAt = Timestamp(in.Int64())
		case "kind":
			out.Kind = Kind(in.Int())
		case "tags":
			out.Tags = tagsUnmarshalEasyJSON(in)
		case "content":
			out.Content = string(in.String())
		case "sig":
			out.Sig = string(in.String())
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
	if in.Ok() {
		if err := out.checkLoaded(); err != nil {
			in.AddError(err)
		}
	}
}

func tagsUnmarshalEasyJSON(in *jlexer.Lexer) Tags {
	if in.IsNull() {
		in.Skip()
		return nil
	}
	in.Delim('[')
	tags := make(Tags, 0, 4)
	for !in.IsDelim(']') {
		var tag Tag
		if in.IsNull() {
			in.Skip()
		} else {
			in.Delim('[')
			tag = make(Tag, 0, 4)
			for !in.IsDelim(']') {
				tag = append(tag, string(in.String()))
				in.WantComma()
			}
			in.Delim(']')
		}
		tags = append(tags, tag)
		in.WantComma()
	}
	in.Delim(']')

	return tags
}

func eventMarshalEasyJSON(out *jwriter.Writer, in *Event) {
	out.RawString(`{"id":`)
	out.String(in.ID)
	out.RawString(`,"pubkey":`)
	out.String(in.PubKey)
	out.RawString(`,"created_at":`)
	out.Int64(int64(in.CreatedAt))
	out.RawString(`,"kind":`)
	out.Int(in.Kind)
	out.RawString(`,"tags":`)
	out.RawByte('[')
	for i, tag := range in.Tags {
		if i > 0 {
			out.RawByte(',')
		}
		out.RawByte('[')
		for j, value := range tag {
			if j > 0 {
				out.RawByte(',')
			}
			out.String(value)
		}
		out.RawByte(']')
	}
	out.RawByte(']')
	out.RawString(`,"content":`)
	out.String(in.Content)
	out.RawString(`,"sig":`)
	out.String(in.Sig)
	out.RawByte('}')
}

// MarshalJSON supports json.Marshaler interface.
func (e *Event) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	eventMarshalEasyJSON(&w, e)
	return w.Buffer.BuildBytes(), w.Error
}

// UnmarshalJSON supports json.Unmarshaler interface.
func (e *Event) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	eventUnmarshalEasyJSON(&r, e)
	return r.Error()
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface.
func (e *Event) UnmarshalEasyJSON(l *jlexer.Lexer) {
	eventUnmarshalEasyJSON(l, e)
}

// MarshalEasyJSON supports easyjson.Marshaler interface.
func (e *Event) MarshalEasyJSON(w *jwriter.Writer) {
	eventMarshalEasyJSON(w, e)
}
