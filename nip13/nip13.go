// SPDX-License-Identifier: ice License 1.0

package nip13

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/bits"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

const (
	MaxDifficulty = 256
	// Nonces tried between two cancellation checks.
	checkEvery = 1 << 12
)

var (
	ErrDifficultyTooLow  = errors.New("insufficient proof of work difficulty")
	ErrInvalidDifficulty = errors.New("invalid proof of work difficulty")
)

// Difficulty counts the leading zero bits of a digest.
func Difficulty(id []byte) int {
	var zeros int
	for _, b := range id {
		if b != 0 {
			return zeros + bits.LeadingZeros8(b)
		}
		zeros += 8
	}

	return zeros
}

func Check(idHex string, minDifficulty int) error {
	id, err := hex.DecodeString(idHex)
	if err != nil {
		return errors.Wrapf(err, "invalid id %q", idHex)
	}
	if d := Difficulty(id); d < minDifficulty {
		return errors.Wrapf(ErrDifficultyTooLow, "%d < %d", d, minDifficulty)
	}

	return nil
}

// DoWork searches a decimal nonce n such that sha256(prefix || n || suffix) has at least difficulty leading zero bits.
// The search is split across workers (GOMAXPROCS when workers <= 0) and stops once ctx is done.
func DoWork(ctx context.Context, prefix, suffix []byte, difficulty, workers int) (uint64, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return 0, errors.Wrapf(ErrInvalidDifficulty, "%d", difficulty)
	}
	if difficulty == 0 {
		return 0, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		nonce atomic.Uint64
		found atomic.Bool
	)
	g, gCtx := errgroup.WithContext(searchCtx)
	for w := range workers {
		g.Go(func() error {
			buf := make([]byte, 0, len(prefix)+20+len(suffix))
			for n, i := uint64(w), 0; ; n, i = n+uint64(workers), i+1 {
				if i%checkEvery == 0 && gCtx.Err() != nil {
					return nil
				}
				buf = append(strconv.AppendUint(append(buf[:0], prefix...), n, 10), suffix...)
				if sum := sha256.Sum256(buf); Difficulty(sum[:]) >= difficulty {
					if found.CompareAndSwap(false, true) {
						nonce.Store(n)
					}
					cancel()

					return nil
				}
			}
		})
	}
	_ = g.Wait()
	if !found.Load() {
		return 0, errors.Wrap(ctx.Err(), "proof of work search cancelled")
	}

	return nonce.Load(), nil
}
