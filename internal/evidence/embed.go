package evidence

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a vector. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashDimension is the vector width produced by HashEmbedder.
const HashDimension = 1024

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "our": {}, "that": {}, "the": {}, "their": {}, "this": {},
	"to": {}, "was": {}, "we": {}, "were": {}, "which": {}, "with": {},
}

// HashEmbedder is a deterministic signed feature-hashing embedder. It needs
// no network and is the default relevance function.
type HashEmbedder struct {
	Dimension int
}

// Embed hashes word tokens into an L2-normalized vector.
func (h HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := h.Dimension
	if dim <= 0 {
		dim = HashDimension
	}
	vec := make([]float32, dim)
	for _, tok := range Tokenize(text) {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum64()
		idx := int(sum % uint64(dim))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	normalize(vec)
	return vec, nil
}

// Tokenize lower-cases text and splits it into word tokens, dropping
// stopwords and single characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine returns the cosine similarity of a and b clamped to [0,1].
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
