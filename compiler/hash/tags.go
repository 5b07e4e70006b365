package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the fingerprint serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every fingerprint already stored in a class cache.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing fingerprints.
const HashVersion byte = 1

// Instruction tags, one per instruction shape.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	TagInsn           byte = 0x01
	TagIntInsn        byte = 0x02
	TagVarInsn        byte = 0x03
	TagTypeInsn       byte = 0x04
	TagFieldInsn      byte = 0x05
	TagMethodInsn     byte = 0x06
	TagJumpInsn       byte = 0x07
	TagLabel          byte = 0x08
	TagLdc            byte = 0x09
	TagIinc           byte = 0x0A
	TagTableSwitch    byte = 0x0B
	TagLookupSwitch   byte = 0x0C
	TagMultiANewArray byte = 0x0D
	TagTryCatch       byte = 0x0E
	TagLineNumber     byte = 0x0F

	// Constant pool values carried by LDC
	TagConstString byte = 0x10
	TagConstInt    byte = 0x11
	TagConstLong   byte = 0x12
	TagConstFloat  byte = 0x13
	TagConstDouble byte = 0x14
	TagConstBool   byte = 0x15
	TagConstNull   byte = 0x16

	// Declarations
	TagMethod byte = 0x20
	TagField  byte = 0x21
	TagClass  byte = 0x22
	TagNoBody byte = 0x23

	// Reserved 0xFE-0xFF
)

// allTags lists every assigned tag for uniqueness checks in tests.
var allTags = []byte{
	TagInsn, TagIntInsn, TagVarInsn, TagTypeInsn, TagFieldInsn, TagMethodInsn,
	TagJumpInsn, TagLabel, TagLdc, TagIinc, TagTableSwitch, TagLookupSwitch,
	TagMultiANewArray, TagTryCatch, TagLineNumber,
	TagConstString, TagConstInt, TagConstLong, TagConstFloat, TagConstDouble,
	TagConstBool, TagConstNull,
	TagMethod, TagField, TagClass, TagNoBody,
}
