package wire_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/nar-community/go-nar/pkg/wire"
)

func TestWriteBytesPadding(t *testing.T) {
	cases := []struct {
		in   []byte
		want int // total encoded length (8 + len + pad)
	}{
		{[]byte(""), 8},
		{[]byte("a"), 8 + 8},
		{[]byte("12345678"), 8 + 8}, // exact multiple: no padding
		{[]byte("123456789"), 8 + 16},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		if err := wire.WriteBytes(&buf, c.in); err != nil {
			t.Fatalf("WriteBytes(%q): %v", c.in, err)
		}

		if buf.Len() != c.want {
			t.Errorf("WriteBytes(%q): encoded length = %d, want %d", c.in, buf.Len(), c.want)
		}
	}
}

func TestRoundtripBytes(t *testing.T) {
	for _, s := range []string{"", "x", "nix-archive-1", "exactly8", "more than eight bytes long"} {
		var buf bytes.Buffer
		if err := wire.WriteString(&buf, s); err != nil {
			t.Fatalf("WriteString: %v", err)
		}

		got, err := wire.ReadString(&buf, 0)
		if err != nil {
			t.Fatalf("ReadString(%q): %v", s, err)
		}

		if got != s {
			t.Errorf("roundtrip: got %q, want %q", got, s)
		}
	}
}

func TestReadBytesBadPadding(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteString(&buf, "a"); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	// Tamper with the last padding byte.
	data[len(data)-1] = 0x01

	_, err := wire.ReadBytes(bytes.NewReader(data), 0)
	if err != wire.ErrBadPadding {
		t.Errorf("ReadBytes with tampered padding: got %v, want ErrBadPadding", err)
	}
}

func TestReadBytesTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteString(&buf, "0123456789"); err != nil {
		t.Fatal(err)
	}

	_, err := wire.ReadBytes(&buf, 4)
	if err != wire.ErrTooLarge {
		t.Errorf("ReadBytes over limit: got %v, want ErrTooLarge", err)
	}
}

func TestReadStringInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteBytes(&buf, []byte{0xff, 0xfe}); err != nil {
		t.Fatal(err)
	}

	_, err := wire.ReadString(&buf, 0)
	if err != wire.ErrInvalidUTF8 {
		t.Errorf("ReadString with invalid utf-8: got %v, want ErrInvalidUTF8", err)
	}
}

func TestCopyPaddedStreamsExactLength(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte("x"), 27)

	if err := wire.CopyPadded(&buf, bytes.NewReader(payload), uint64(len(payload))); err != nil {
		t.Fatalf("CopyPadded: %v", err)
	}

	got, err := wire.ReadBytes(&buf, 0)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("roundtrip mismatch: got %q, want %q", got, payload)
	}
}

func TestCopyPaddedShortReadFails(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.CopyPadded(&buf, bytes.NewReader([]byte("short")), 10); err == nil {
		t.Error("CopyPadded with short source: expected error, got nil")
	}
}

func TestWriteReadUint64(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteUint64(&buf, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 8 {
		t.Fatalf("WriteUint64 length = %d, want 8", buf.Len())
	}

	got, err := wire.ReadUint64(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got != 0x0102030405060708 {
		t.Errorf("ReadUint64 = %#x, want %#x", got, 0x0102030405060708)
	}
}

func TestWriteReadBool(t *testing.T) {
	for _, v := range []bool{true, false} {
		var buf bytes.Buffer
		if err := wire.WriteBool(&buf, v); err != nil {
			t.Fatal(err)
		}

		got, err := wire.ReadBool(&buf)
		if err != nil {
			t.Fatal(err)
		}

		if got != v {
			t.Errorf("ReadBool roundtrip: got %v, want %v", got, v)
		}
	}
}

func TestReadUint64ShortRead(t *testing.T) {
	_, err := wire.ReadUint64(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil || err == io.EOF {
		t.Errorf("ReadUint64 on short buffer: got %v, want a non-EOF error", err)
	}
}
