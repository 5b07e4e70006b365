package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/groovypp/asm"
)

// ---------------------------------------------------------------------------
// Image Error Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected GPPI")
	ErrVersionMismatch = errors.New("image version mismatch")
	ErrTruncated       = errors.New("unexpected end of image data")
)

// CorruptError reports an instruction record that cannot be rebuilt.
type CorruptError struct {
	Method string
	Index  int
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt image: %s insn %d: %s", e.Method, e.Index, e.Reason)
}

// cborEncMode uses canonical mode so that equal images encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const headerSize = 8

// Encode serializes img: magic, big-endian version, CBOR body.
func Encode(img *Image) ([]byte, error) {
	body, err := cborEncMode.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("image: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	buf.Write(Magic[:])
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], img.Version)
	buf.Write(v[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:4])
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, v, Version)
	}
	var img Image
	if err := cbor.Unmarshal(data[headerSize:], &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w: body says %d", ErrVersionMismatch, img.Version)
	}
	return &img, nil
}

// EncodeClass serializes a single class record without a header.
func EncodeClass(c *Class) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// DecodeClass parses bytes produced by EncodeClass.
func DecodeClass(data []byte) (*Class, error) {
	var c Class
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("image: unmarshal class: %w", err)
	}
	return &c, nil
}

// WriteFile encodes img to path, creating parent directories.
func WriteFile(path string, img *Image) error {
	data, err := Encode(img)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

// ReadFile decodes the image at path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Disassemble writes every method of every class to w.
func (img *Image) Disassemble(w io.Writer) error {
	fmt.Fprintf(w, "; module %s session %s\n", img.Module, img.Session)
	for _, c := range img.Classes {
		header := "class " + c.Name
		if c.Super != "" {
			header += " extends " + c.Super
		}
		if len(c.Interfaces) > 0 {
			header += " implements " + strings.Join(c.Interfaces, ", ")
		}
		fmt.Fprintf(w, "\n%s\n", header)
		for _, f := range c.Fields {
			fmt.Fprintf(w, "  field %s : %s\n", f.Name, f.Desc)
		}
		for i := range c.Methods {
			m := &c.Methods[i]
			seq, err := m.Sequence()
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			if seq == nil {
				fmt.Fprintf(w, "  abstract %s%s\n", m.Name, m.Desc)
				continue
			}
			if _, err := io.WriteString(w, asm.DisassembleWithName(m.Name+m.Desc, seq)); err != nil {
				return err
			}
		}
	}
	return nil
}
