// SPDX-License-Identifier: ice License 1.0

package nip13

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/jamiealquiza/tachymeter"
	gonip13 "github.com/nbd-wtf/go-nostr/nip13"
	"github.com/stretchr/testify/require"
)

func TestDifficulty(t *testing.T) {
	t.Parallel()

	vectors := map[string]int{
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff": 0,
		"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff": 1,
		"0fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff": 4,
		"00ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff": 8,
		"000000000e9d97a1ab09fc381030b346cdd7a142ad57e6df0b46dc9bef6c7e2d": 36,
		"0000000000000000000000000000000000000000000000000000000000000000": 256,
	}
	for id, expected := range vectors {
		b, err := hex.DecodeString(id)
		require.NoError(t, err)
		require.Equalf(t, expected, Difficulty(b), "%v", id)
		require.Equalf(t, gonip13.Difficulty(id), Difficulty(b), "%v", id)
	}

	require.NoError(t, Check("00ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", 8))
	require.ErrorIs(t, Check("00ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", 9), ErrDifficultyTooLow)
	require.Error(t, Check("xyz", 1))
}

func TestDoWork(t *testing.T) {
	t.Parallel()

	prefix, suffix := []byte(`[0,"pk",1,1,[["nonce","`), []byte(`","8"]],"hi"]`)
	for _, difficulty := range []int{0, 4, 8, 12} {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		nonce, err := DoWork(ctx, prefix, suffix, difficulty, 0)
		cancel()
		require.NoError(t, err)
		sum := sha256.Sum256(append(append(append([]byte{}, prefix...), strconv.FormatUint(nonce, 10)...), suffix...))
		require.GreaterOrEqual(t, Difficulty(sum[:]), difficulty)
		if difficulty == 0 {
			require.Zero(t, nonce)
		}
	}
}

func TestDoWorkCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := DoWork(ctx, []byte("prefix"), []byte("suffix"), 200, 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = DoWork(context.Background(), nil, nil, MaxDifficulty+1, 1)
	require.ErrorIs(t, err, ErrInvalidDifficulty)
}

func BenchmarkDoWork(b *testing.B) {
	meter := tachymeter.New(&tachymeter.Config{Size: b.N})
	prefix, suffix := []byte(`[0,"pk",1,1,[["nonce","`), []byte(`","16"]],"bench"]`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := time.Now()
		_, err := DoWork(context.Background(), append(prefix, strconv.Itoa(i)...), suffix, 16, 0)
		require.NoError(b, err)
		meter.AddTime(time.Since(start))
	}
	metric := meter.Calc()
	b.ReportMetric(float64(metric.Time.Avg.Milliseconds()), "avg-ms/op")
	b.ReportMetric(float64(metric.Time.P95.Milliseconds()), "p95-ms/op")
}
