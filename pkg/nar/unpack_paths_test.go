package nar

import "testing"

// Entry paths can never reach UnpackIn containing "/" or ".." components in
// practice, since Next already rejects such directory entry names while
// parsing (InvalidDirEntryCharError/InvalidDirEntryNameError). This checks
// the unpacker's own defense-in-depth directly, mirroring
// original_source/src/de.rs's unpack_in, which re-validates path
// components rather than trusting the parser alone.
func TestCheckPathComponentsRejectsEscape(t *testing.T) {
	cases := []string{"../outside", "a/../../outside", "/absolute"}

	for _, p := range cases {
		if err := checkPathComponents(p); err == nil {
			t.Errorf("checkPathComponents(%q): expected error, got nil", p)
		}
	}
}

func TestCheckPathComponentsAllowsOrdinaryPaths(t *testing.T) {
	cases := []string{"", "file.txt", "subdir/nested.txt"}

	for _, p := range cases {
		if err := checkPathComponents(p); err != nil {
			t.Errorf("checkPathComponents(%q): unexpected error %v", p, err)
		}
	}
}
