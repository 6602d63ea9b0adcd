// Package pipeline sweeps an evaluator over a temperature × μ grid with a
// pool of workers. Each worker owns a contiguous block of temperature rows,
// writes only those rows of the result matrix, and logs one line per point to
// its own file.
//
// The only contract to implement is Evaluator, which keeps the grid driver
// independent of the physics and testable with fakes.
package pipeline
