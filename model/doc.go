// Package model holds the geometry shared by the PDF layers: points, boxes
// in user space, and affine matrices in PDF's [a b c d e f] form.
//
// Matrices act on row vectors, so m.Multiply(n) applies m first and then n,
// the same order as concatenating a CTM with cm.
package model
