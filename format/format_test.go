package format

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PNG, "png"},
		{JPEG, "jpeg"},
		{PDF, "pdf"},
		{Unknown, "unknown"},
		{Format(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Extension(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PNG, "png"},
		{JPEG, "jpg"},
		{PDF, "pdf"},
		{Unknown, ""},
	}

	for _, tt := range tests {
		if got := tt.format.Extension(); got != tt.want {
			t.Errorf("Format(%d).Extension() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", PNG, false},
		{"PNG", PNG, false},
		{" jpeg ", JPEG, false},
		{"jpg", JPEG, false},
		{"pdf", PDF, false},
		{"gif", Unknown, true},
		{"", Unknown, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	var f Format
	if err := f.UnmarshalText([]byte("jpeg")); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if f != JPEG {
		t.Errorf("UnmarshalText(jpeg) = %v", f)
	}
	if err := f.UnmarshalText([]byte("tiff")); err == nil {
		t.Error("UnmarshalText(tiff) should fail")
	}
	if _, err := Unknown.MarshalText(); err == nil {
		t.Error("MarshalText(Unknown) should fail")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"report.1.png", PNG},
		{"report.1.PNG", PNG},
		{"photo.jpg", JPEG},
		{"photo.jpeg", JPEG},
		{"invoice.pdf", PDF},
		{"invoice.Pdf", PDF},
		{"notes.txt", Unknown},
		{"noextension", Unknown},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", []byte("\x89PNG\r\n\x1a\n...."), PNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, JPEG},
		{"pdf", []byte("%PDF-1.7\n"), PDF},
		{"pdf after junk", append(bytes.Repeat([]byte{' '}, 100), "%PDF-1.4"...), PDF},
		{"pdf too late", append(bytes.Repeat([]byte{' '}, 2000), "%PDF-1.4"...), Unknown},
		{"short", []byte("%P"), Unknown},
		{"empty", nil, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 16), uint8(y * 32), 128, 255})
		}
	}
	return img
}

func TestEncodePNG(t *testing.T) {
	img := testImage()
	data, err := EncodeBytes(img, PNG, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeBytes error: %v", err)
	}
	if DetectFromMagic(data) != PNG {
		t.Fatal("output does not carry the PNG signature")
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode error: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
	r, _, _, _ := decoded.At(15, 0).RGBA()
	if r>>8 != 240 {
		t.Errorf("red at (15,0) = %d, want 240", r>>8)
	}

	again, err := EncodeBytes(img, PNG, EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("encoding the same image twice gave different bytes")
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeBytes(testImage(), JPEG, EncodeOptions{Quality: 90})
	if err != nil {
		t.Fatalf("EncodeBytes error: %v", err)
	}
	if DetectFromMagic(data) != JPEG {
		t.Fatal("output does not carry the JPEG signature")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig error: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 8 {
		t.Errorf("size = %dx%d, want 16x8", cfg.Width, cfg.Height)
	}
}

func TestEncodeErrors(t *testing.T) {
	if _, err := EncodeBytes(testImage(), JPEG, EncodeOptions{Quality: 101}); err == nil {
		t.Error("quality 101 should fail")
	}
	if _, err := EncodeBytes(testImage(), PDF, EncodeOptions{}); err == nil {
		t.Error("encoding as PDF should fail")
	}
	if _, err := EncodeBytes(testImage(), Unknown, EncodeOptions{}); err == nil {
		t.Error("encoding as Unknown should fail")
	}
}
