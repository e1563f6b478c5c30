package testpdf

import (
	"crypto/md5"
	"crypto/rc4"
	"encoding/hex"
	"fmt"
)

var padding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func rc4Bytes(key, data []byte) []byte {
	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// Encrypted builds a one-page, 100 x 100 point revision 2 (40-bit RC4) file
// that opens with the empty user password. The page content and the info
// dictionary's /Title are encrypted.
func Encrypted(content, title string) []byte {
	id := []byte("0123456789abcdef")
	o := make([]byte, 32)
	for i := range o {
		o[i] = 0x5A
	}
	p := int32(-44)

	h := md5.New()
	h.Write(padding)
	h.Write(o)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(id)
	key := h.Sum(nil)[:5]
	u := rc4Bytes(key, padding)

	objKey := func(num int) []byte {
		h := md5.New()
		h.Write(key)
		h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16), 0, 0})
		return h.Sum(nil)[:10]
	}

	b := New()
	b.Add("<< /Type /Catalog /Pages 2 0 R >>")
	b.Add("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.Add("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 100] /Contents 6 0 R >>")
	b.Add(fmt.Sprintf("<< /Title <%s> >>", hex.EncodeToString(rc4Bytes(objKey(4), []byte(title)))))
	b.Add(fmt.Sprintf("<< /Filter /Standard /V 1 /R 2 /O <%s> /U <%s> /P -44 >>",
		hex.EncodeToString(o), hex.EncodeToString(u)))
	b.AddStream("", rc4Bytes(objKey(6), []byte(content)))
	idHex := hex.EncodeToString(id)
	return b.Bytes(fmt.Sprintf("/Root 1 0 R /Info 4 0 R /Encrypt 5 0 R /ID [<%s> <%s>]", idHex, idHex))
}
