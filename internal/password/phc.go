package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// phcParams разобранная PHC строка argon2
type phcParams struct {
	salt    []byte
	key     []byte
	variant Algorithm
	version uint32
	memory  uint32
	time    uint32
	threads uint8
}

// encodePHC сериализует ключ argon2 в формат
//
//	$argon2id$v=19$m=7168,t=5,p=1$<salt>$<key>
func encodePHC(variant Algorithm, memory, time uint32, threads uint8, salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		variant,
		argon2.Version,
		memory,
		time,
		threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// decodePHC разбирает PHC строку argon2
func decodePHC(encoded string) (*phcParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 PHC segments, got %d", errInvalidHash, len(parts)-1)
	}

	variant := Algorithm(parts[1])
	if variant != AlgorithmArgon2id && variant != AlgorithmArgon2i {
		return nil, fmt.Errorf("%w: unknown argon2 variant %q", errInvalidHash, parts[1])
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", errInvalidHash, version)
	}

	kvs, err := parseParams(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidHash, err)
	}
	memory, ok1 := kvs["m"]
	time, ok2 := kvs["t"]
	threads, ok3 := kvs["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing m/t/p in %q", errInvalidHash, parts[3])
	}
	if memory > 1<<32-1 || time > 1<<32-1 || threads > 255 || time == 0 || threads == 0 {
		return nil, fmt.Errorf("%w: parameters out of range", errInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %w", errInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %w", errInvalidHash, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty key", errInvalidHash)
	}

	return &phcParams{
		variant: variant,
		version: uint32(version),
		memory:  uint32(memory),
		time:    uint32(time),
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}

// parseKV разбирает "key=value"
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 64)
}

// parseParams разбирает "m=7168,t=5,p=1" в map
func parseParams(s string) (map[string]uint64, error) {
	out := make(map[string]uint64, 3)
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed param %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value in %q: %w", kv, err)
		}
		out[kv[:eq]] = v
	}
	return out, nil
}

// randomBytes возвращает n криптографически случайных байт
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// argon2Key вызывает нужный вариант argon2
func argon2Key(variant Algorithm, input, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
	if variant == AlgorithmArgon2i {
		return argon2.Key(input, salt, time, memory, threads, keyLen)
	}
	return argon2.IDKey(input, salt, time, memory, threads, keyLen)
}

// bcryptInput приводит вход к фиксированной длине: bcrypt отвергает входы длиннее 72 байт
func bcryptInput(input []byte) []byte {
	sum := sha256.Sum256(input)
	return []byte(hex.EncodeToString(sum[:]))
}

// computeBody вычисляет hashBody для нового хеша
func (o Options) computeBody(input []byte) (string, error) {
	switch o.Algorithm {
	case AlgorithmArgon2id, AlgorithmArgon2i:
		salt, err := randomBytes(innerSaltLen)
		if err != nil {
			return "", err
		}
		key := argon2Key(o.Algorithm, input, salt, o.TimeCost, o.MemoryCost, o.Threads, keyLen)
		return encodePHC(o.Algorithm, o.MemoryCost, o.TimeCost, o.Threads, salt, key), nil
	case AlgorithmBcrypt:
		body, err := bcrypt.GenerateFromPassword(bcryptInput(input), int(o.TimeCost))
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(body), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, o.Algorithm)
	}
}

// matchBody сравнивает вход с hashBody за постоянное время.
// Тело другого алгоритма или неразборное тело дает false
func (o Options) matchBody(input []byte, body string) bool {
	switch o.Algorithm {
	case AlgorithmArgon2id, AlgorithmArgon2i:
		p, err := decodePHC(body)
		if err != nil || p.variant != o.Algorithm || !o.withinCeiling(p) {
			return false
		}
		computed := argon2Key(p.variant, input, p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
		return subtle.ConstantTimeCompare(computed, p.key) == 1
	case AlgorithmBcrypt:
		if !strings.HasPrefix(body, "$2") {
			return false
		}
		cost, err := bcrypt.Cost([]byte(body))
		if err != nil || cost > int(o.TimeCost)+maxBcryptCostDelta {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(body), bcryptInput(input)) == nil
	default:
		return false
	}
}

// withinCeiling проверяет, что стоимость пересчета записи ограничена текущими параметрами
func (o Options) withinCeiling(p *phcParams) bool {
	return uint64(p.memory) <= maxCostFactor*uint64(o.MemoryCost) &&
		uint64(p.time) <= maxCostFactor*uint64(o.TimeCost) &&
		uint64(p.threads) <= maxCostFactor*uint64(o.Threads) &&
		len(p.key) <= maxKeyLen
}

// bodyOutdated проверяет, отличаются ли параметры hashBody от текущих
func (o Options) bodyOutdated(body string) bool {
	switch o.Algorithm {
	case AlgorithmArgon2id, AlgorithmArgon2i:
		p, err := decodePHC(body)
		if err != nil {
			return true
		}
		return p.variant != o.Algorithm ||
			p.memory != o.MemoryCost ||
			p.time != o.TimeCost ||
			p.threads != o.Threads ||
			len(p.key) != keyLen
	case AlgorithmBcrypt:
		cost, err := bcrypt.Cost([]byte(body))
		if err != nil {
			return true
		}
		return cost != int(o.TimeCost)
	default:
		return true
	}
}
