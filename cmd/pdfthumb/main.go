// pdfthumb renders first-page thumbnails of PDF documents.
//
// Usage:
//
//	pdfthumb generate [--config file] [--out dir] [--strict] file.pdf...
//	pdfthumb path [--config file] name
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
