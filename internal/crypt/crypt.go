// Package crypt implements the PDF standard security handler for documents
// that open with an empty user password. Permission flags are not enforced.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"github.com/tsawler/pdfthumb/core"
)

var (
	// ErrPasswordRequired is returned when the empty user password does not
	// open the document.
	ErrPasswordRequired = errors.New("crypt: document requires a password")
	// ErrUnsupported is returned for security handlers other than Standard
	// or for unknown revisions.
	ErrUnsupported = errors.New("crypt: unsupported encryption")
)

type method int

const (
	methodNone method = iota
	methodRC4
	methodAESV2
	methodAESV3
)

// Decrypter decrypts strings and streams of one document.
type Decrypter struct {
	key       []byte
	strMethod method
	stmMethod method
}

var padding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// New builds a Decrypter from the /Encrypt dictionary and the first element
// of the trailer /ID array.
func New(enc core.Dict, id []byte) (*Decrypter, error) {
	if filter, _ := enc.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("%w: security handler %q", ErrUnsupported, filter)
	}
	v, _ := enc.GetInt("V")
	r, _ := enc.GetInt("R")
	o, _ := enc.GetString("O")
	u, _ := enc.GetString("U")
	p, _ := enc.GetInt("P")

	d := &Decrypter{strMethod: methodRC4, stmMethod: methodRC4}
	if v >= 4 {
		d.strMethod = cryptFilterMethod(enc, "StrF")
		d.stmMethod = cryptFilterMethod(enc, "StmF")
	}

	switch {
	case r >= 2 && r <= 4:
		length := 40
		if l, ok := enc.GetInt("Length"); ok && v >= 2 && r > 2 && l >= 40 && l <= 128 {
			length = int(l)
		} else if v == 4 {
			length = 128
		}
		encryptMeta := true
		if b, ok := enc.GetBool("EncryptMetadata"); ok {
			encryptMeta = bool(b)
		}
		key := computeKey(int(r), length/8, []byte(o), int32(p), id, encryptMeta)
		if !checkUserKey(int(r), key, []byte(u), id) {
			return nil, ErrPasswordRequired
		}
		d.key = key
	case r == 5 || r == 6:
		ue, _ := enc.GetString("UE")
		key, err := computeKeyV5(int(r), []byte(u), []byte(ue))
		if err != nil {
			return nil, err
		}
		d.key = key
	default:
		return nil, fmt.Errorf("%w: revision %d", ErrUnsupported, r)
	}
	return d, nil
}

func cryptFilterMethod(enc core.Dict, which string) method {
	name, ok := enc.GetName(which)
	if !ok || name == "Identity" {
		return methodNone
	}
	cf, _ := enc.GetDict("CF")
	filter, _ := cf.GetDict(string(name))
	switch cfm, _ := filter.GetName("CFM"); cfm {
	case "V2":
		return methodRC4
	case "AESV2":
		return methodAESV2
	case "AESV3":
		return methodAESV3
	}
	return methodNone
}

// computeKey is the R2-R4 file key derivation from the empty password.
func computeKey(r, n int, o []byte, p int32, id []byte, encryptMeta bool) []byte {
	h := md5.New()
	h.Write(padding)
	h.Write(o)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(id)
	if r >= 4 && !encryptMeta {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := h.Sum(nil)
	if r >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:n])
			key = sum[:]
		}
	}
	return key[:n]
}

func checkUserKey(r int, key, u, id []byte) bool {
	if r == 2 {
		return bytes.Equal(rc4Crypt(key, padding), u)
	}
	h := md5.New()
	h.Write(padding)
	h.Write(id)
	out := rc4Crypt(key, h.Sum(nil))
	tmp := make([]byte, len(key))
	for i := 1; i <= 19; i++ {
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		out = rc4Crypt(tmp, out)
	}
	return len(u) >= 16 && bytes.Equal(out[:16], u[:16])
}

func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// computeKeyV5 validates the empty user password against U and unwraps the
// file key from UE (AES-256, revisions 5 and 6).
func computeKeyV5(r int, u, ue []byte) ([]byte, error) {
	if len(u) < 48 || len(ue) < 32 {
		return nil, fmt.Errorf("%w: malformed /U or /UE", ErrUnsupported)
	}
	validation := hashV5(r, nil, u[32:40], nil)
	if !bytes.Equal(validation, u[:32]) {
		return nil, ErrPasswordRequired
	}
	inter := hashV5(r, nil, u[40:48], nil)
	block, err := aes.NewCipher(inter)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(key, ue[:32])
	return key, nil
}

// hashV5 is SHA-256 for revision 5 and the iterated hash for revision 6.
func hashV5(r int, pw, salt, udata []byte) []byte {
	h := sha256.New()
	h.Write(pw)
	h.Write(salt)
	h.Write(udata)
	k := h.Sum(nil)
	if r == 5 {
		return k
	}

	for round := 0; ; round++ {
		seq := make([]byte, 0, len(pw)+len(k)+len(udata))
		seq = append(seq, pw...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := bytes.Repeat(seq, 64)

		block, _ := aes.NewCipher(k[:16])
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		var next hash.Hash
		switch sum % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(e)
		k = next.Sum(nil)

		if round >= 63 && int(e[len(e)-1]) <= round+1-32 {
			break
		}
	}
	return k[:32]
}

// DecryptString decrypts a string belonging to object ref.
func (d *Decrypter) DecryptString(ref core.IndirectRef, data []byte) ([]byte, error) {
	return d.decrypt(d.strMethod, ref, data)
}

// DecryptStream decrypts stream data belonging to object ref.
func (d *Decrypter) DecryptStream(ref core.IndirectRef, data []byte) ([]byte, error) {
	return d.decrypt(d.stmMethod, ref, data)
}

func (d *Decrypter) decrypt(m method, ref core.IndirectRef, data []byte) ([]byte, error) {
	switch m {
	case methodNone:
		return data, nil
	case methodRC4:
		return rc4Crypt(d.objectKey(ref, false), data), nil
	case methodAESV2:
		return aesDecrypt(d.objectKey(ref, true), data)
	case methodAESV3:
		return aesDecrypt(d.key, data)
	}
	return data, nil
}

func (d *Decrypter) objectKey(ref core.IndirectRef, aesSalt bool) []byte {
	h := md5.New()
	h.Write(d.key)
	h.Write([]byte{byte(ref.Number), byte(ref.Number >> 8), byte(ref.Number >> 16)})
	h.Write([]byte{byte(ref.Generation), byte(ref.Generation >> 8)})
	if aesSalt {
		h.Write([]byte("sAlT"))
	}
	n := len(d.key) + 5
	if n > 16 {
		n = 16
	}
	return h.Sum(nil)[:n]
}

// aesDecrypt decrypts CBC data whose first block is the IV and strips
// PKCS#5 padding. Data shorter than one block decrypts to nothing.
func aesDecrypt(key, data []byte) ([]byte, error) {
	if len(data) < 2*aes.BlockSize {
		return []byte{}, nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	body = body[:len(body)-len(body)%aes.BlockSize]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	if n := len(out); n > 0 {
		pad := int(out[n-1])
		if pad >= 1 && pad <= aes.BlockSize && pad <= n {
			out = out[:n-pad]
		}
	}
	return out, nil
}
