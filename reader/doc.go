// Package reader opens PDF files and loads their objects.
//
//	r, err := reader.NewReader(data)
//	if err != nil {
//	    return err
//	}
//	page, err := r.GetPage(0)
//
// A Reader parses the header and the cross-reference chain (classic tables,
// xref streams and hybrid files). When the chain is missing or broken it
// rebuilds the table by scanning for "n g obj" headers, and
// [Reader.Reconstructed] reports that it did.
//
// Objects are loaded lazily and cached; objects inside object streams are
// unpacked on first use. A reference to an object that does not exist
// resolves to null.
//
// # Encryption
//
// Files protected by the standard security handler (RC4 40 and 128 bit,
// AES-128 and AES-256) are decrypted transparently when the empty user
// password opens them. [WithAllowEncrypted](false) rejects them with
// [ErrEncrypted] instead.
//
// # Images
//
// [DecodeImage] turns an image XObject or inline image into an
// *image.NRGBA, applying /Decode, colour key masks, /SMask and /Mask.
// Image masks come back as a stencil alpha. JPX and JBIG2 data is reported
// with [ErrUnsupportedImage].
package reader
