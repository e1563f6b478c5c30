package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"errors"
	"testing"

	"github.com/tsawler/pdfthumb/core"
)

// rc4Fixture builds an /Encrypt dictionary that opens with the empty user
// password, following the same derivation New uses.
func rc4Fixture(r int, id []byte) core.Dict {
	o := bytes.Repeat([]byte{0x5A}, 32)
	p := int32(-44)
	n := 5
	if r >= 3 {
		n = 16
	}
	key := computeKey(r, n, o, p, id, true)

	var u []byte
	if r == 2 {
		u = rc4Crypt(key, padding)
	} else {
		h := md5.New()
		h.Write(padding)
		h.Write(id)
		u = rc4Crypt(key, h.Sum(nil))
		tmp := make([]byte, len(key))
		for i := 1; i <= 19; i++ {
			for j := range key {
				tmp[j] = key[j] ^ byte(i)
			}
			u = rc4Crypt(tmp, u)
		}
		u = append(u, make([]byte, 16)...)
	}

	d := core.Dict{
		"Filter": core.Name("Standard"),
		"V":      core.Int(1),
		"R":      core.Int(r),
		"O":      core.String(o),
		"U":      core.String(u),
		"P":      core.Int(p),
	}
	if r >= 3 {
		d["V"] = core.Int(2)
		d["Length"] = core.Int(128)
	}
	return d
}

func TestRC4RoundTrip(t *testing.T) {
	id := []byte("0123456789abcdef")
	for _, r := range []int{2, 3} {
		dec, err := New(rc4Fixture(r, id), id)
		if err != nil {
			t.Fatalf("R%d: New error: %v", r, err)
		}
		ref := core.IndirectRef{Number: 7}
		plain := []byte("BT /F1 12 Tf (hi) Tj ET")
		cipherText := rc4Crypt(dec.objectKey(ref, false), plain)

		got, err := dec.DecryptStream(ref, cipherText)
		if err != nil {
			t.Fatalf("R%d: DecryptStream error: %v", r, err)
		}
		if !bytes.Equal(got, plain) {
			t.Errorf("R%d: DecryptStream = %q, want %q", r, got, plain)
		}
	}
}

func TestWrongPassword(t *testing.T) {
	id := []byte("0123456789abcdef")
	enc := rc4Fixture(3, id)
	enc["U"] = core.String(bytes.Repeat([]byte{1}, 32))
	if _, err := New(enc, id); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("New with mismatched /U: got %v, want ErrPasswordRequired", err)
	}
}

func TestUnsupportedHandler(t *testing.T) {
	enc := core.Dict{"Filter": core.Name("Adobe.PubSec"), "R": core.Int(4)}
	if _, err := New(enc, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("New with public-key handler: got %v, want ErrUnsupported", err)
	}
}

func TestAESDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte{3}, 16)
	iv := bytes.Repeat([]byte{9}, 16)
	plain := []byte("exactly sixteen!")
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{16}, 16)...)

	block, _ := aes.NewCipher(key)
	enc := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(enc, padded)

	got, err := aesDecrypt(key, append(iv, enc...))
	if err != nil {
		t.Fatalf("aesDecrypt error: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("aesDecrypt = %q, want %q", got, plain)
	}
}

func TestRevision5EmptyPassword(t *testing.T) {
	validationSalt := []byte("vsalt123")
	keySalt := []byte("ksalt123")
	u := append(hashV5(5, nil, validationSalt, nil), validationSalt...)
	u = append(u, keySalt...)

	fileKey := bytes.Repeat([]byte{0xAB}, 32)
	block, _ := aes.NewCipher(hashV5(5, nil, keySalt, nil))
	ue := make([]byte, 32)
	cipher.NewCBCEncrypter(block, make([]byte, 16)).CryptBlocks(ue, fileKey)

	got, err := computeKeyV5(5, u, ue)
	if err != nil {
		t.Fatalf("computeKeyV5 error: %v", err)
	}
	if !bytes.Equal(got, fileKey) {
		t.Errorf("computeKeyV5 = %x, want %x", got, fileKey)
	}
}
