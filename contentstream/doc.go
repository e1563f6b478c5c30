// Package contentstream tokenizes PDF content streams into operations.
//
// A content stream is a sequence of operands followed by an operator, e.g.
// "1 0 0 rg 10 10 100 50 re f". [Parser.Next] returns one [Operation] at a
// time and io.EOF at the end, so an interpreter can stop early or check a
// deadline between operators:
//
//	p := contentstream.NewParser(data)
//	for {
//	    op, err := p.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    handle(op.Operator, op.Operands)
//	}
//
// [Parser.Parse] collects every operation; on a syntax error it returns the
// operations read so far with the error.
//
// Operands are core objects: numbers, strings, names, arrays and
// dictionaries. Indirect references are not recognised inside content.
//
// # Inline Images
//
// BI ... ID ... EI sequences are returned as one "BI" operation carrying a
// *core.Stream. Abbreviated keys and names (/W, /CS /RGB, /F /Fl) are
// expanded to their full forms.
package contentstream
