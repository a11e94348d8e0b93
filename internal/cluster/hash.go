package cluster

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

const defaultHashDimensions = 256

// HashEmbedder is the default, fully offline embedding provider. It projects
// word unigrams and bigrams into a fixed-dimension vector via blake2b hashing
// and L2-normalizes the result. Same text always yields the same vector, on
// any machine, which is what the determinism invariant needs.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dims)
	tokens := tokenize(text)

	for _, tok := range tokens {
		h.accumulate(vec, tok)
	}
	for i := 0; i+1 < len(tokens); i++ {
		h.accumulate(vec, tokens[i]+" "+tokens[i+1])
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// accumulate folds one feature into the vector: the hash picks the bucket,
// its low bit picks the sign. Signed buckets keep unrelated features from
// all pushing the vector in the same direction.
func (h *HashEmbedder) accumulate(vec []float64, feature string) {
	sum := blake2b.Sum256([]byte(feature))
	bucket := binary.BigEndian.Uint32(sum[:4]) % uint32(h.dims)
	if sum[4]&1 == 0 {
		vec[bucket]++
	} else {
		vec[bucket]--
	}
}

// tokenize lowercases and splits on non-alphanumeric runs, additionally
// breaking snake_case identifiers so save_user and user contribute shared
// features.
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 1 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
