package jsonlutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
)

type row struct {
	N int `json:"n"`
}

func encodeRow(enc *json.Encoder, r row) error { return enc.Encode(r) }

func never(error) bool { return false }

func TestStart_WritesLines(t *testing.T) {
	var buf bytes.Buffer
	in, done := Start[row](&buf, 1, encodeRow, never)
	for i := 0; i < 3; i++ {
		in <- row{N: i}
	}
	close(in)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "{\"n\":0}\n{\"n\":1}\n{\"n\":2}\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

type failWriter struct{ err error }

func (f failWriter) Write([]byte) (int, error) { return 0, f.err }

func TestStart_ErrorDoesNotBlockSenders(t *testing.T) {
	boom := errors.New("boom")
	in, done := Start[row](io.Discard, 1, func(*json.Encoder, row) error { return boom }, never)
	for i := 0; i < 100; i++ {
		in <- row{N: i}
	}
	close(in)
	if err := <-done; !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

func TestStart_BrokenPipeSuppressed(t *testing.T) {
	pipe := errors.New("pipe closed")
	in, done := Start[row](failWriter{pipe}, 1, encodeRow, func(err error) bool { return errors.Is(err, pipe) })
	in <- row{N: 1}
	close(in)
	if err := <-done; err != nil {
		t.Fatalf("broken pipe should be suppressed, got %v", err)
	}
}
