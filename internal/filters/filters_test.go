package filters

import (
	"bytes"
	"compress/lzw"
	"errors"
	"testing"
)

func TestFlateRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("q 1 0 0 1 0 0 cm Q\n"), 50)
	enc, err := FlateEncode(plain)
	if err != nil {
		t.Fatalf("FlateEncode error: %v", err)
	}
	got, err := FlateDecode(enc, nil)
	if err != nil {
		t.Fatalf("FlateDecode error: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("FlateDecode(FlateEncode(x)) != x")
	}
}

func TestFlateDecodeTruncated(t *testing.T) {
	plain := bytes.Repeat([]byte("abcdefgh"), 1000)
	enc, _ := FlateEncode(plain)
	got, err := FlateDecode(enc[:len(enc)-6], nil)
	if err != nil {
		t.Fatalf("FlateDecode of truncated data error: %v", err)
	}
	if len(got) == 0 || !bytes.HasPrefix(plain, got) {
		t.Errorf("truncated decode returned %d bytes, want a non-empty prefix", len(got))
	}
}

func TestFlateDecodeGarbage(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib at all"), nil); err == nil {
		t.Error("expected error for non-zlib input")
	}
}

// limitDecodedSize lowers the decoded size cap for one test.
func limitDecodedSize(t *testing.T, n int64) {
	t.Helper()
	old := maxDecodedSize
	maxDecodedSize = n
	t.Cleanup(func() { maxDecodedSize = old })
}

func TestFlateDecodeTooLarge(t *testing.T) {
	limitDecodedSize(t, 4096)

	enc, err := FlateEncode(make([]byte, 4097))
	if err != nil {
		t.Fatalf("FlateEncode error: %v", err)
	}
	if _, err := FlateDecode(enc, nil); !errors.Is(err, ErrDecodedTooLarge) {
		t.Errorf("FlateDecode of 4097 bytes = %v, want ErrDecodedTooLarge", err)
	}

	enc, _ = FlateEncode(make([]byte, 4096))
	got, err := FlateDecode(enc, nil)
	if err != nil {
		t.Fatalf("FlateDecode at the limit error: %v", err)
	}
	if len(got) != 4096 {
		t.Errorf("FlateDecode at the limit returned %d bytes, want 4096", len(got))
	}
}

func TestPNGPredictor(t *testing.T) {
	// Two rows of three 1-byte pixels: row 0 uses Sub, row 1 uses Up.
	raw := []byte{
		1, 10, 5, 5,
		2, 1, 1, 1,
	}
	got, err := applyPNGPredictor(raw, Params{"Predictor": 12, "Columns": 3})
	if err != nil {
		t.Fatalf("applyPNGPredictor error: %v", err)
	}
	want := []byte{10, 15, 20, 11, 16, 21}
	if !bytes.Equal(got, want) {
		t.Errorf("applyPNGPredictor = %v, want %v", got, want)
	}
}

func TestTIFFPredictor(t *testing.T) {
	got, err := applyTIFFPredictor2([]byte{1, 1, 1, 2, 2, 2}, Params{"Predictor": 2, "Columns": 3})
	if err != nil {
		t.Fatalf("applyTIFFPredictor2 error: %v", err)
	}
	want := []byte{1, 2, 3, 2, 4, 6}
	if !bytes.Equal(got, want) {
		t.Errorf("applyTIFFPredictor2 = %v, want %v", got, want)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"48656C6C6F>", []byte("Hello")},
		{"48 65\n6c>", []byte("Hel")},
		{"4>", []byte{0x40}},
		{"", []byte{}},
	}
	for _, tt := range tests {
		got, err := ASCIIHexDecode([]byte(tt.in))
		if err != nil {
			t.Fatalf("ASCIIHexDecode(%q) error: %v", tt.in, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("ASCIIHexDecode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ASCIIHexDecode([]byte("4G")); err == nil {
		t.Error("expected error for invalid hex digit")
	}
}

func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<~87cURD]i,\"Ebo80~>", "Hello World!"},
		{"87cURD]i,\"Ebo80~>", "Hello World!"},
		{"z~>", "\x00\x00\x00\x00"},
	}
	for _, tt := range tests {
		got, err := ASCII85Decode([]byte(tt.in))
		if err != nil {
			t.Fatalf("ASCII85Decode(%q) error: %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("ASCII85Decode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRunLengthDecode(t *testing.T) {
	in := []byte{2, 'a', 'b', 'c', 254, 'z', 128, 'x'}
	got, err := RunLengthDecode(in)
	if err != nil {
		t.Fatalf("RunLengthDecode error: %v", err)
	}
	if want := "abczzz"; string(got) != want {
		t.Errorf("RunLengthDecode = %q, want %q", got, want)
	}
}

func TestLZWDecodeNoEarlyChange(t *testing.T) {
	plain := []byte("TOBEORNOTTOBEORTOBEORNOT")
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	w.Write(plain)
	w.Close()

	got, err := LZWDecode(buf.Bytes(), Params{"EarlyChange": 0})
	if err != nil {
		t.Fatalf("LZWDecode error: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("LZWDecode = %q, want %q", got, plain)
	}
}

func TestLZWDecodeTooLarge(t *testing.T) {
	limitDecodedSize(t, 1024)

	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	w.Write(bytes.Repeat([]byte("A"), 2048))
	w.Close()

	if _, err := LZWDecode(buf.Bytes(), Params{"EarlyChange": 0}); !errors.Is(err, ErrDecodedTooLarge) {
		t.Errorf("LZWDecode = %v, want ErrDecodedTooLarge", err)
	}
}
