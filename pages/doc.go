// Package pages walks the PDF page tree and exposes page attributes.
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	page, err := tree.GetPage(0)
//
// A [Page] keeps the chain of ancestor /Pages nodes so that inheritable
// attributes (Resources, MediaBox, CropBox, Rotate) resolve the way a
// viewer would see them. The walk tolerates missing /Type entries,
// reference cycles and a wrong /Count.
package pages
