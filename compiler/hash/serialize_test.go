package hash

import (
	"bytes"
	"testing"
)

func TestSerializeVersionPrefix(t *testing.T) {
	data := SerializeMethod(HMethod{Name: "run", Desc: "()V"})
	if data[0] != HashVersion {
		t.Errorf("first byte = 0x%02x, want HashVersion", data[0])
	}
	data = SerializeClass(&HClass{Name: "demo/Host"})
	if data[0] != HashVersion || data[1] != TagClass {
		t.Errorf("class prefix = % x", data[:2])
	}
}

func TestSerializeDistinguishesConstants(t *testing.T) {
	consts := []any{nil, "1", 1, int64(1), float32(1), float64(1), true}
	seen := make(map[string]any)
	for _, c := range consts {
		m := HMethod{Body: []HInsn{{Tag: TagLdc, Const: c}}}
		key := string(SerializeMethod(m))
		if prev, dup := seen[key]; dup {
			t.Errorf("%#v and %#v serialize identically", prev, c)
		}
		seen[key] = c
	}
}

func TestSerializeAbstractVersusEmptyBody(t *testing.T) {
	abstract := SerializeMethod(HMethod{Name: "run", Desc: "()V"})
	empty := SerializeMethod(HMethod{Name: "run", Desc: "()V", Body: []HInsn{}})
	if bytes.Equal(abstract, empty) {
		t.Error("a method without code serializes like an empty body")
	}
}

func TestSerializeUnknownConstantPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	SerializeMethod(HMethod{Body: []HInsn{{Tag: TagLdc, Const: struct{}{}}}})
}

func TestSerializeStringBoundaries(t *testing.T) {
	// Length prefixes keep ("ab","c") apart from ("a","bc").
	a := SerializeMethod(HMethod{Body: []HInsn{{Tag: TagMethodInsn, Owner: "ab", Name: "c"}}})
	b := SerializeMethod(HMethod{Body: []HInsn{{Tag: TagMethodInsn, Owner: "a", Name: "bc"}}})
	if bytes.Equal(a, b) {
		t.Error("string boundaries are ambiguous")
	}
}
