// Package writers turns the result table into serialized outputs.
//
// Design:
//   - Writers own all presentation knowledge (text, TSV, JSON, JSONL, SQLite).
//   - The grid driver stays orchestration-only and never formats numbers.
//   - Formats are looked up in a registry so callers never switch on names.
package writers
