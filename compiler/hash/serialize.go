package hash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of fingerprint records
// ---------------------------------------------------------------------------

// SerializeMethod produces the canonical bytes for a normalized method.
// The first byte is always HashVersion.
func SerializeMethod(m HMethod) []byte {
	var buf bytes.Buffer
	writeByte(&buf, HashVersion)
	serializeMethod(&buf, m)
	return buf.Bytes()
}

// SerializeClass produces the canonical bytes for a normalized class.
func SerializeClass(c *HClass) []byte {
	var buf bytes.Buffer
	writeByte(&buf, HashVersion)
	writeByte(&buf, TagClass)
	writeString(&buf, c.Name)
	writeString(&buf, c.Super)
	writeUint32(&buf, c.Flags)
	writeUint32(&buf, uint32(len(c.Interfaces)))
	for _, i := range c.Interfaces {
		writeString(&buf, i)
	}
	writeUint32(&buf, uint32(len(c.Fields)))
	for _, f := range c.Fields {
		writeByte(&buf, TagField)
		writeString(&buf, f.Name)
		writeString(&buf, f.Desc)
		writeUint32(&buf, f.Flags)
	}
	writeUint32(&buf, uint32(len(c.Methods)))
	for _, m := range c.Methods {
		serializeMethod(&buf, m)
	}
	return buf.Bytes()
}

func serializeMethod(buf *bytes.Buffer, m HMethod) {
	writeByte(buf, TagMethod)
	writeString(buf, m.Name)
	writeString(buf, m.Desc)
	writeUint32(buf, m.Flags)
	if m.Body == nil {
		writeByte(buf, TagNoBody)
		return
	}
	writeInt64(buf, m.MaxStack)
	writeInt64(buf, m.MaxLocals)
	writeUint32(buf, uint32(len(m.Body)))
	for _, in := range m.Body {
		serializeInsn(buf, in)
	}
}

func serializeInsn(buf *bytes.Buffer, in HInsn) {
	writeByte(buf, in.Tag)
	switch in.Tag {
	case TagInsn:
		writeByte(buf, in.Op)
	case TagIntInsn, TagVarInsn:
		writeByte(buf, in.Op)
		writeInt64(buf, in.Arg)
	case TagTypeInsn:
		writeByte(buf, in.Op)
		writeString(buf, in.Owner)
	case TagFieldInsn, TagMethodInsn:
		writeByte(buf, in.Op)
		writeString(buf, in.Owner)
		writeString(buf, in.Name)
		writeString(buf, in.Desc)
	case TagJumpInsn:
		writeByte(buf, in.Op)
		writeLabels(buf, in.Labels)
	case TagLabel:
		writeLabels(buf, in.Labels)
	case TagLdc:
		serializeConst(buf, in.Const)
	case TagIinc:
		writeInt64(buf, in.Arg)
		writeInt64(buf, in.Arg2)
	case TagTableSwitch:
		writeInt64(buf, in.Arg)
		writeInt64(buf, in.Arg2)
		writeLabels(buf, in.Labels)
	case TagLookupSwitch:
		writeUint32(buf, uint32(len(in.Keys)))
		for _, k := range in.Keys {
			writeInt64(buf, k)
		}
		writeLabels(buf, in.Labels)
	case TagMultiANewArray:
		writeString(buf, in.Desc)
		writeInt64(buf, in.Arg)
	case TagTryCatch:
		writeString(buf, in.Owner)
		writeLabels(buf, in.Labels)
	case TagLineNumber:
		writeInt64(buf, in.Arg)
		writeLabels(buf, in.Labels)
	default:
		panic(fmt.Sprintf("hash: unknown instruction tag 0x%02x", in.Tag))
	}
}

// serializeConst writes an LDC operand. Integer widths are kept distinct
// since the JVM treats int and long constants as different pool entries.
func serializeConst(buf *bytes.Buffer, v any) {
	switch c := v.(type) {
	case nil:
		writeByte(buf, TagConstNull)
	case string:
		writeByte(buf, TagConstString)
		writeString(buf, c)
	case int:
		writeByte(buf, TagConstInt)
		writeInt64(buf, int64(c))
	case int32:
		writeByte(buf, TagConstInt)
		writeInt64(buf, int64(c))
	case int64:
		writeByte(buf, TagConstLong)
		writeInt64(buf, c)
	case float32:
		writeByte(buf, TagConstFloat)
		writeUint32(buf, math.Float32bits(c))
	case float64:
		writeByte(buf, TagConstDouble)
		writeFloat64(buf, c)
	case bool:
		writeByte(buf, TagConstBool)
		if c {
			writeByte(buf, 1)
		} else {
			writeByte(buf, 0)
		}
	default:
		panic(fmt.Sprintf("hash: unsupported constant %T", v))
	}
}

// ---------------------------------------------------------------------------
// Low-level writers (all big-endian)
// ---------------------------------------------------------------------------

func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

// writeString writes a length-prefixed UTF-8 string.
func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeLabels(buf *bytes.Buffer, ls []uint32) {
	writeUint32(buf, uint32(len(ls)))
	for _, l := range ls {
		writeUint32(buf, l)
	}
}
