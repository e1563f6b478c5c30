// Package core holds the PDF object model and the syntax layer beneath it.
//
// Every value in a file is an [Object]: [Null], [Bool], [Int], [Real],
// [String], [Name], [Array] or [Dict], plus [Stream] (a dictionary with
// raw data) and [IndirectRef] ("12 0 R"). [Number] reads either numeric
// type as a float64.
//
// # Reading
//
// [Lexer] splits input into tokens and [Parser] builds objects from them,
// including "n g obj ... endobj" definitions. A stream whose /Length is
// missing or wrong is cut at the next endstream keyword.
//
// [XRefParser] reads classic cross-reference tables and xref streams and
// follows /Prev and /XRefStm; the result is an [XRefTable]. Objects stored
// in object streams are unpacked by [ObjectStream].
//
// # Stream Decoding
//
// [Stream.Decode] runs the /Filter chain through internal/filters:
// FlateDecode, LZWDecode, ASCIIHexDecode, ASCII85Decode, RunLengthDecode
// and CCITTFaxDecode. [Stream.DecodeImage] stops before DCTDecode,
// JPXDecode and JBIG2Decode and returns the encoded image data with the
// name of the image filter.
//
// # Writing
//
// [Writer] serialises objects into a new file with a classic xref table.
// Equal input produces byte-identical output.
package core
