// Package hash computes content fingerprints of compiled classes and
// methods. A fingerprint depends only on what the JVM would see: labels are
// numbered by first reference and line tables are ignored, so recompiling
// unchanged code yields the same value.
package hash

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// Fingerprint is a 128-bit xxh3 digest.
type Fingerprint [16]byte

// String renders the fingerprint as lowercase hex.
func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// IsZero reports whether f is the zero fingerprint.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

func sum(data []byte) Fingerprint {
	return Fingerprint(xxh3.Hash128(data).Bytes())
}

// Sequence fingerprints a bare instruction sequence.
func Sequence(seq *asm.Sequence) Fingerprint {
	m := HMethod{Body: NormalizeSequence(seq, false)}
	if seq != nil {
		m.MaxStack = int64(seq.MaxStack)
		m.MaxLocals = int64(seq.MaxLocals)
	}
	return sum(SerializeMethod(m))
}

// Method fingerprints a method's signature and compiled body.
func Method(m *ast.Method) Fingerprint {
	return sum(SerializeMethod(NormalizeMethod(m)))
}

// Class fingerprints a class declaration and all of its members.
func Class(c *ast.Class) Fingerprint {
	return sum(SerializeClass(NormalizeClass(c)))
}
