package room

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"strings"
)

// CodeGenerator produces candidate room codes. Uniqueness among live rooms is
// checked by the Manager, which asks again on collision.
type CodeGenerator interface {
	Generate() string
}

// RandomCodes draws codes uniformly from an alphabet.
type RandomCodes struct {
	alphabet string
	length   int
}

func NewRandomCodes(alphabet string, length int) *RandomCodes {
	return &RandomCodes{alphabet: strings.ToUpper(alphabet), length: length}
}

func (g *RandomCodes) Generate() string {
	code := make([]byte, g.length)
	limit := big.NewInt(int64(len(g.alphabet)))
	for i := range code {
		n, err := crand.Int(crand.Reader, limit)
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = g.alphabet[rand.Intn(len(g.alphabet))]
			continue
		}
		code[i] = g.alphabet[n.Int64()]
	}
	return string(code)
}

// NormalizeCode makes room codes compare case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
