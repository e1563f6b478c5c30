// Package graphicsstate provides PDF graphics state management.
//
// The PDF graphics state controls how content is rendered, including
// transformation matrices, colours, line properties, clipping and text
// state. This package implements the state stack used during content
// stream processing, together with the pieces a renderer needs around it:
//
//   - [ColorSpace] implementations (device, Lab, ICCBased via /N or
//     /Alternate, Indexed, Separation, DeviceN, Pattern) and [Function]
//     (sampled, exponential, stitching and PostScript calculator)
//   - [Path] construction, flattening and [StrokeOutline] for turning a
//     stroked path into fillable polygons
//
// Example usage:
//
//	gs := graphicsstate.NewGraphicsState()
//	gs.Save()              // Push state (q operator)
//	gs.Transform(matrix)   // Modify CTM (cm operator)
//	gs.SetFont("F1", 12)   // Set font (Tf operator)
//	gs.Restore()           // Pop state (Q operator)
//
// Matrices follow the PDF row-vector convention: cm pre-multiplies the
// CTM, and the text rendering matrix is [Tfs*Th 0 0 Tfs 0 Trise] x Tm x CTM.
package graphicsstate
