// Package placeholder implements the deterministic segmentation policies
// that stand in for acoustic inference. Segment boundaries come from the
// audio duration (Coarse) or from fixed-length chunks (Chunked); segment
// text comes from fixed blocks. A real recognizer plugs in as a TextSource
// without touching boundary or aggregation logic.
package placeholder
