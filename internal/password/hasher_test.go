package password

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/bingo/internal/credential"
)

// testOptions дешевые параметры, чтобы тесты не тратили секунды на argon2
func testOptions(peppers ...string) Options {
	return Options{
		Peppers:     peppers,
		Algorithm:   AlgorithmArgon2id,
		MemoryCost:  64,
		TimeCost:    1,
		Threads:     1,
		SaltLength:  DefaultSaltLength,
		Concurrency: 4,
	}
}

func newTestHasher(t *testing.T, opts Options) *Hasher {
	t.Helper()
	h, err := NewHasher(opts)
	require.NoError(t, err)
	return h
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		modify  func(o *Options)
		wantErr error
		name    string
	}{
		{name: "defaults", modify: func(o *Options) {}},
		{name: "argon2i", modify: func(o *Options) { o.Algorithm = AlgorithmArgon2i }},
		{name: "bcrypt", modify: func(o *Options) { o.Algorithm = AlgorithmBcrypt; o.TimeCost = 4 }},
		{name: "unknown algorithm", modify: func(o *Options) { o.Algorithm = "scrypt" }, wantErr: ErrUnsupportedAlgorithm},
		{name: "zero time cost", modify: func(o *Options) { o.TimeCost = 0 }, wantErr: ErrInvalidOption},
		{name: "zero threads", modify: func(o *Options) { o.Threads = 0 }, wantErr: ErrInvalidOption},
		{name: "memory too small", modify: func(o *Options) { o.MemoryCost = 4 }, wantErr: ErrInvalidOption},
		{name: "bcrypt cost too high", modify: func(o *Options) { o.Algorithm = AlgorithmBcrypt; o.TimeCost = 40 }, wantErr: ErrInvalidOption},
		{name: "odd salt length", modify: func(o *Options) { o.SaltLength = 31 }, wantErr: ErrInvalidOption},
		{name: "short salt", modify: func(o *Options) { o.SaltLength = 8 }, wantErr: ErrInvalidOption},
		{name: "blank pepper", modify: func(o *Options) { o.Peppers = []string{"p1", ""} }, wantErr: ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHasher_HashVerify(t *testing.T) {
	algorithms := []Algorithm{AlgorithmArgon2id, AlgorithmArgon2i, AlgorithmBcrypt}

	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			opts := testOptions("pepper-1")
			opts.Algorithm = alg
			if alg == AlgorithmBcrypt {
				opts.TimeCost = 4
			}
			h := newTestHasher(t, opts)
			ctx := context.Background()

			first, err := h.Hash(ctx, "Abcdef12")
			require.NoError(t, err)
			second, err := h.Hash(ctx, "Abcdef12")
			require.NoError(t, err)
			assert.NotEqual(t, first, second, "одинаковый пароль должен давать разные записи")

			rec, err := credential.Decode(first, opts.SaltLength)
			require.NoError(t, err)
			assert.Equal(t, "1", rec.PepperVersion)
			assert.Len(t, rec.Salt, opts.SaltLength)
			assert.True(t, strings.HasPrefix(rec.HashBody, "$"))

			ok, err := h.Verify(ctx, "Abcdef12", first)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify(ctx, "WrongPass1", first)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHasher_EmptyPassword(t *testing.T) {
	h := newTestHasher(t, testOptions())
	ctx := context.Background()

	_, err := h.Hash(ctx, "")
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Verify(ctx, "", "0$argon2id$whatever")
	require.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHasher_PepperRotation(t *testing.T) {
	ctx := context.Background()
	old := newTestHasher(t, testOptions("P1", "P0"))

	record, err := old.Hash(ctx, "Abcdef12")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record, "2$"), "текущий перец из списка длины 2 имеет тег 2")
	assert.False(t, old.NeedsRehash(record))

	rotated := newTestHasher(t, testOptions("P2", "P1", "P0"))

	ok, err := rotated.Verify(ctx, "Abcdef12", record)
	require.NoError(t, err)
	assert.True(t, ok, "запись со старым перцем должна проверяться после ротации")
	assert.True(t, rotated.NeedsRehash(record))

	fresh, err := rotated.Hash(ctx, "Abcdef12")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fresh, "3$"))
	assert.False(t, rotated.NeedsRehash(fresh))

	// после удаления перца запись перестает проверяться
	dropped := newTestHasher(t, testOptions("P2"))
	ok, err = dropped.Verify(ctx, "Abcdef12", record)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_LegacyRecord(t *testing.T) {
	ctx := context.Background()
	unpeppered := newTestHasher(t, testOptions())

	record, err := unpeppered.Hash(ctx, "Abcdef12")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(record, "0$"))

	// legacy запись без тега версии
	legacy := strings.TrimPrefix(record, "0")

	peppered := newTestHasher(t, testOptions("P1"))
	for _, rec := range []string{record, legacy} {
		ok, err := peppered.Verify(ctx, "Abcdef12", rec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, peppered.NeedsRehash(rec))
	}
}

func TestHasher_VerifyNeverFailsOnBadRecords(t *testing.T) {
	h := newTestHasher(t, testOptions("P1"))
	ctx := context.Background()
	salt := strings.Repeat("a", DefaultSaltLength)

	bcryptHasher := newTestHasher(t, Options{
		Algorithm: AlgorithmBcrypt, TimeCost: 4, SaltLength: DefaultSaltLength, Peppers: []string{"P1"},
	})
	bcryptRecord, err := bcryptHasher.Hash(ctx, "Abcdef12")
	require.NoError(t, err)

	records := map[string]string{
		"empty":                "",
		"no delimiter":         "argon2id" + salt,
		"too short":            "1$abc",
		"garbage body":         "1$garbage" + salt,
		"wrong segment count":  "1$argon2id$v=19$m=64,t=1,p=1$c2FsdA" + salt,
		"bad base64":           "1$argon2id$v=19$m=64,t=1,p=1$!!!$!!!" + salt,
		"zero threads":         "1$argon2id$v=19$m=64,t=1,p=0$c2FsdA$a2V5" + salt,
		"unknown variant":      "1$argon2d$v=19$m=64,t=1,p=1$c2FsdA$a2V5" + salt,
		"algorithm mismatch":   bcryptRecord,
		"unknown pepper tag":   "99$argon2id$v=19$m=64,t=1,p=1$c2FsdA$a2V5" + salt,
		"non numeric version":  "x$argon2id$v=19$m=64,t=1,p=1$c2FsdA$a2V5" + salt,
		"unsupported version":  "1$argon2id$v=16$m=64,t=1,p=1$c2FsdA$a2V5" + salt,
	}

	for name, record := range records {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify(ctx, "Abcdef12", record)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.True(t, h.NeedsRehash(record))
		})
	}
}

func TestHasher_VerifyCostCeiling(t *testing.T) {
	ctx := context.Background()
	opts := testOptions("P1")
	h := newTestHasher(t, opts)
	version, pepper := opts.currentPepper()
	salt := strings.Repeat("ab", DefaultSaltLength/2)
	pass := input("Abcdef12", salt, pepper)
	inner := []byte("0123456789abcdef")

	argonRecord := func(t *testing.T, memory, iterations uint32, threads uint8, key []byte) string {
		t.Helper()
		if key == nil {
			key = argon2Key(AlgorithmArgon2id, pass, inner, iterations, memory, threads, keyLen)
		}
		record, err := credential.Encode(version, encodePHC(AlgorithmArgon2id, memory, iterations, threads, inner, key), salt)
		require.NoError(t, err)
		return record
	}

	// запись с повышенными, но допустимыми параметрами проверяется
	ok, err := h.Verify(ctx, "Abcdef12", argonRecord(t, 4*opts.MemoryCost, 4*opts.TimeCost, 1, nil))
	require.NoError(t, err)
	assert.True(t, ok)

	fakeKey := []byte(strings.Repeat("k", keyLen))
	tests := []struct {
		name       string
		key        []byte
		memory     uint32
		iterations uint32
		threads    uint8
	}{
		{name: "huge time cost", memory: opts.MemoryCost, iterations: 200000, threads: 1, key: fakeKey},
		{name: "huge memory cost", memory: 1 << 30, iterations: 1, threads: 1, key: fakeKey},
		{name: "too many threads", memory: 8 * 255, iterations: 1, threads: 255, key: fakeKey},
		{name: "oversized key", memory: opts.MemoryCost, iterations: 1, threads: 1, key: []byte(strings.Repeat("k", maxKeyLen+1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := argonRecord(t, tt.memory, tt.iterations, tt.threads, tt.key)
			start := time.Now()
			ok, err := h.Verify(ctx, "Abcdef12", record)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Less(t, time.Since(start), time.Second)
			assert.True(t, h.NeedsRehash(record))
		})
	}

	t.Run("bcrypt", func(t *testing.T) {
		bopts := Options{Algorithm: AlgorithmBcrypt, TimeCost: 4, SaltLength: DefaultSaltLength, Peppers: []string{"P1"}}
		bh := newTestHasher(t, bopts)

		bcryptRecord := func(t *testing.T, cost int) string {
			t.Helper()
			body, err := bcrypt.GenerateFromPassword(bcryptInput(pass), cost)
			require.NoError(t, err)
			record, err := credential.Encode(version, string(body), salt)
			require.NoError(t, err)
			return record
		}

		ok, err := bh.Verify(ctx, "Abcdef12", bcryptRecord(t, 6))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = bh.Verify(ctx, "Abcdef12", bcryptRecord(t, 7))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHasher_LongPasswordBcrypt(t *testing.T) {
	h := newTestHasher(t, Options{Algorithm: AlgorithmBcrypt, TimeCost: 4, SaltLength: DefaultSaltLength})
	ctx := context.Background()
	long := strings.Repeat("x", 128)

	record, err := h.Hash(ctx, long)
	require.NoError(t, err)

	ok, err := h.Verify(ctx, long, record)
	require.NoError(t, err)
	assert.True(t, ok)

	// отличие после 72 байт тоже обнаруживается
	ok, err = h.Verify(ctx, strings.Repeat("x", 127)+"y", record)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_ContextCancelled(t *testing.T) {
	opts := testOptions()
	opts.Concurrency = 1
	h := newTestHasher(t, opts)

	// занимаем единственный слот
	h.sem <- struct{}{}
	defer h.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Abcdef12")
	require.ErrorIs(t, err, context.Canceled)

	_, err = h.Verify(ctx, "Abcdef12", "0$x"+strings.Repeat("a", DefaultSaltLength))
	require.ErrorIs(t, err, context.Canceled)
}

func TestHasher_ConcurrentUse(t *testing.T) {
	opts := testOptions("P1")
	opts.Concurrency = 2
	h := newTestHasher(t, opts)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := h.Hash(ctx, "Abcdef12")
			if err != nil {
				errs <- err
				return
			}
			if ok, err := h.Verify(ctx, "Abcdef12", record); err != nil || !ok {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestHasher_Observer(t *testing.T) {
	h := newTestHasher(t, testOptions())
	ctx := context.Background()

	var mu sync.Mutex
	ops := map[string]int{}
	h.SetObserver(func(op string, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		ops[op]++
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	})

	record, err := h.Hash(ctx, "Abcdef12")
	require.NoError(t, err)
	_, err = h.Verify(ctx, "Abcdef12", record)
	require.NoError(t, err)
	h.VerifyDummy(ctx, "Abcdef12")

	assert.Equal(t, 1, ops[OpHash])
	assert.Equal(t, 2, ops[OpVerify])
}

func TestHasher_VerifyDummy(t *testing.T) {
	h := newTestHasher(t, testOptions("P1"))
	// не должен паниковать даже на пустом пароле
	h.VerifyDummy(context.Background(), "")
	h.VerifyDummy(context.Background(), "anything")
}

func TestBench(t *testing.T) {
	h := newTestHasher(t, testOptions())

	_, err := Bench(context.Background(), h, 0)
	require.ErrorIs(t, err, ErrInvalidOption)

	res, err := Bench(context.Background(), h, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Samples)
	assert.Positive(t, res.AvgHash)
	assert.Positive(t, res.AvgVerify)
}

// Регрессионная проверка стоимости параметров по умолчанию
func TestHasher_DefaultCostCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("timing guard skipped in short mode")
	}

	h := newTestHasher(t, DefaultOptions())
	res, err := Bench(context.Background(), h, 5)
	require.NoError(t, err)

	const ceiling = time.Second
	assert.Less(t, res.AvgHash, ceiling, "средний hash %s превышает %s", res.AvgHash, ceiling)
	assert.Less(t, res.AvgVerify, ceiling)
}
