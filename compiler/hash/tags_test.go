package hash

import "testing"

func TestTagsUnique(t *testing.T) {
	seen := make(map[byte]bool)
	for _, tag := range allTags {
		if seen[tag] {
			t.Errorf("duplicate tag 0x%02x", tag)
		}
		seen[tag] = true
	}
}

func TestTagsBelowReserved(t *testing.T) {
	for _, tag := range allTags {
		if tag >= 0xFE {
			t.Errorf("tag 0x%02x is in the reserved range", tag)
		}
		if tag == TagReservedZero {
			t.Errorf("tag 0x00 is reserved")
		}
	}
}

func TestHashVersionFrozen(t *testing.T) {
	if HashVersion != 1 {
		t.Errorf("HashVersion = %d; bumping it invalidates every cached fingerprint", HashVersion)
	}
}
