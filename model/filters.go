// SPDX-License-Identifier: ice License 1.0

package model

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

type (
	Filter struct {
		nostr.Filter
	}
	Filters []Filter
)

const DefaultFilterLimit = 10

func NewFilter() *Filter {
	return &Filter{Filter: nostr.Filter{Limit: DefaultFilterLimit}}
}

func (f *Filter) Types(kinds ...Kind) *Filter {
	f.Kinds = append(f.Kinds, kinds...)

	return f
}

func (f *Filter) SinceNow() *Filter {
	now := nostr.Now()
	f.Since = &now

	return f
}

func (f *Filter) UntilNow() *Filter {
	now := nostr.Now()
	f.Until = &now

	return f
}

// PublishedBy restricts authors; values that are not full public keys are skipped.
func (f *Filter) PublishedBy(pubkeys ...string) *Filter {
	for _, pk := range pubkeys {
		if isHex(pk, idHexSize) {
			f.Authors = append(f.Authors, pk)
		}
	}

	return f
}

func (f *Filter) RelativeTo(eventIDs ...string) *Filter {
	return f.withTag(TagEvent, eventIDs...)
}

func (f *Filter) Mentioning(pubkeys ...string) *Filter {
	return f.withTag(TagPubKey, pubkeys...)
}

func (f *Filter) SubscribeTo(eventIDs ...string) *Filter {
	f.IDs = append(f.IDs, eventIDs...)

	return f
}

// MinimumPoW asks for ids starting with difficulty/4 zero hex digits.
func (f *Filter) MinimumPoW(difficulty int) *Filter {
	if difficulty >= 4 {
		f.IDs = append(f.IDs, strings.Repeat("0", min(difficulty/4, idHexSize)))
	}

	return f
}

func (f *Filter) Count(limit int) *Filter {
	f.Limit = limit
	f.LimitZero = limit == 0

	return f
}

func (f *Filter) withTag(key string, values ...string) *Filter {
	if len(values) == 0 {
		return f
	}
	if f.Tags == nil {
		f.Tags = make(TagMap, 1)
	}
	f.Tags[key] = append(f.Tags[key], values...)

	return f
}

func (eff Filters) Match(event *Event) bool {
	for _, filter := range eff {
		if filter.Matches(event) {
			return true
		}
	}

	return false
}

// Matches treats ids as prefixes, the way relays answer proof of work queries.
func (ef Filter) Matches(event *Event) bool {
	if len(ef.IDs) == 0 {
		return ef.Filter.Matches(event.ToNostr())
	}
	for _, prefix := range ef.IDs {
		if strings.HasPrefix(event.ID, prefix) {
			withoutIDs := ef.Filter
			withoutIDs.IDs = nil

			return withoutIDs.Matches(event.ToNostr())
		}
	}

	return false
}

func FromNostrFilters(filters nostr.Filters) Filters {
	if len(filters) == 0 {
		return nil
	}

	result := make(Filters, len(filters))
	for idx := range filters {
		result[idx] = Filter{Filter: filters[idx]}
	}

	return result
}

func (eff Filters) ToNostr() nostr.Filters {
	result := make(nostr.Filters, len(eff))
	for idx := range eff {
		result[idx] = eff[idx].Filter
	}

	return result
}
