// Package extract copies the first page of a PDF into a new, standalone
// single-page document.
//
// The new document contains a catalog, a one-node page tree, the page and
// every object the page reaches (content streams, resources, fonts, images,
// forms). Attributes the page inherits from its ancestors are written onto
// the page itself. Annotations, article beads, structure links and the
// page thumbnail are not carried over.
//
//	single, err := extract.FirstPage(data)
//	if errors.Is(err, extract.ErrEmptyDocument) {
//	    // nothing to preview
//	}
//
// Documents protected by the standard security handler that open with the
// empty user password are decrypted; the output is never encrypted.
package extract
