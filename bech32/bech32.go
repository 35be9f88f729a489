// SPDX-License-Identifier: ice License 1.0

package bech32

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	charset   = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	separator = '1'

	checksumLength = 6
	// Same relaxed limit as go-nostr: TLV entities (nprofile, nevent) exceed BIP-173's 90 chars.
	maxLength = 5000
)

var (
	ErrBech32Decode = errors.New("bech32 decode error")
	ErrInvalidHRP   = errors.New("invalid human-readable part")

	generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	//nolint:gochecknoglobals // Lookup table.
	charsetRev = func() (rev [128]int8) {
		for i := range rev {
			rev[i] = -1
		}
		for i := range charset {
			rev[charset[i]] = int8(i)
		}

		return rev
	}()
)

// Encode renders 8-bit payload as hrp + "1" + data + checksum.
func Encode(hrp string, payload []byte) (string, error) {
	if err := validateHRP(hrp); err != nil {
		return "", err
	}
	data, err := ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "failed to regroup payload")
	}
	hrp = strings.ToLower(hrp)
	checksum := createChecksum(hrp, data)

	var b strings.Builder
	b.Grow(len(hrp) + 1 + len(data) + checksumLength)
	b.WriteString(hrp)
	b.WriteByte(separator)
	for _, v := range data {
		b.WriteByte(charset[v])
	}
	for _, v := range checksum {
		b.WriteByte(charset[v])
	}

	return b.String(), nil
}

// Decode validates the checksum and returns the lowercase hrp with the 8-bit payload.
func Decode(s string) (hrp string, payload []byte, err error) {
	if len(s) > maxLength {
		return "", nil, errors.Wrapf(ErrBech32Decode, "string too long: %d", len(s))
	}
	lower, upper := strings.ToLower(s), strings.ToUpper(s)
	if s != lower && s != upper {
		return "", nil, errors.Wrap(ErrBech32Decode, "mixed case")
	}
	s = lower
	pos := strings.LastIndexByte(s, separator)
	if pos < 1 || pos+checksumLength+1 > len(s) {
		return "", nil, errors.Wrapf(ErrBech32Decode, "invalid separator position %d", pos)
	}
	hrp = s[:pos]
	if err = validateHRP(hrp); err != nil {
		return "", nil, errors.Wrap(ErrBech32Decode, err.Error())
	}
	data := make([]byte, 0, len(s)-pos-1)
	for i := pos + 1; i < len(s); i++ {
		c := s[i]
		if c >= 128 || charsetRev[c] == -1 {
			return "", nil, errors.Wrapf(ErrBech32Decode, "invalid character %q at %d", c, i)
		}
		data = append(data, byte(charsetRev[c]))
	}
	if polymod(append(expandHRP(hrp), data...)) != 1 {
		return "", nil, errors.Wrap(ErrBech32Decode, "checksum mismatch")
	}
	payload, err = ConvertBits(data[:len(data)-checksumLength], 5, 8, false)
	if err != nil {
		return "", nil, errors.Wrap(ErrBech32Decode, err.Error())
	}

	return hrp, payload, nil
}

// ConvertBits regroups a byte slice of fromBits-wide values into toBits-wide values.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, errors.Errorf("invalid bit group sizes %d->%d", fromBits, toBits)
	}
	var (
		acc  uint32
		bits uint
		ret  = make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
		maxv = uint32(1)<<toBits - 1
	)
	for _, v := range data {
		if uint32(v)>>fromBits != 0 {
			return nil, errors.Errorf("invalid data range: %d", v)
		}
		acc = acc<<fromBits | uint32(v)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte(acc>>bits&maxv))
		}
	}
	if pad {
		if bits > 0 {
			ret = append(ret, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, errors.New("invalid padding")
	}

	return ret, nil
}

func validateHRP(hrp string) error {
	if hrp == "" || len(hrp) > 83 {
		return errors.Wrapf(ErrInvalidHRP, "length %d", len(hrp))
	}
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return errors.Wrapf(ErrInvalidHRP, "character %q at %d", hrp[i], i)
		}
	}

	return nil
}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= generator[i]
			}
		}
	}

	return chk
}

func expandHRP(hrp string) []byte {
	ret := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		ret = append(ret, hrp[i]>>5)
	}
	ret = append(ret, 0)
	for i := 0; i < len(hrp); i++ {
		ret = append(ret, hrp[i]&31)
	}

	return ret
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(expandHRP(hrp), data...)
	values = append(values, make([]byte, checksumLength)...)
	mod := polymod(values) ^ 1
	ret := make([]byte, checksumLength)
	for i := range ret {
		ret[i] = byte(mod >> uint(5*(5-i)) & 31)
	}

	return ret
}
