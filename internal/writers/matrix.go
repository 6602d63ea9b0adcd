// internal/writers/matrix.go
package writers

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"

	"github.com/PDoakORNL/BetheAnsatz/internal/jsonlutil"
)

const (
	FormatText  = "text"
	FormatTSV   = "tsv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

func init() {
	Register(FormatText, writeText)
	Register(FormatTSV, writeTSV)
	Register(FormatJSON, writeJSON)
	Register(FormatJSONL, writeJSONL)
}

func formatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'g', precision, 64)
}

// writeText prints the bare matrix: one row per temperature, values
// separated by single spaces.
func writeText(w io.Writer, t Table, precision int) error {
	return writeRows(w, t, precision, " ", false)
}

// writeTSV adds a header of μ values and a leading temperature column.
func writeTSV(w io.Writer, t Table, precision int) error {
	return writeRows(w, t, precision, "\t", true)
}

func writeRows(w io.Writer, t Table, precision int, sep string, labels bool) error {
	bw := bufio.NewWriter(w)
	if labels {
		bw.WriteString("T")
		for _, mu := range t.Mus {
			bw.WriteString(sep)
			bw.WriteString("mu=" + formatFloat(mu, precision))
		}
		bw.WriteByte('\n')
	}
	for i, T := range t.Temperatures {
		if labels {
			bw.WriteString(formatFloat(T, precision))
			bw.WriteString(sep)
		}
		for j := range t.Mus {
			if j > 0 {
				bw.WriteString(sep)
			}
			bw.WriteString(formatFloat(t.Omega.At(i, j), precision))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type jsonTable struct {
	Temperatures []float64   `json:"temperatures"`
	Mus          []float64   `json:"mus"`
	Omega        [][]float64 `json:"omega"`
}

// writeJSON ignores precision; values keep full float64 round-trip digits.
func writeJSON(w io.Writer, t Table, _ int) error {
	out := jsonTable{Temperatures: t.Temperatures, Mus: t.Mus, Omega: make([][]float64, len(t.Temperatures))}
	for i := range out.Omega {
		row := make([]float64, len(t.Mus))
		for j := range row {
			row[j] = t.Omega.At(i, j)
		}
		out.Omega[i] = row
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Point is one grid value in the JSONL stream.
type Point struct {
	T     float64 `json:"T"`
	Mu    float64 `json:"mu"`
	Omega float64 `json:"omega"`
}

func writeJSONL(w io.Writer, t Table, _ int) error {
	in, done := StartPointWriter(w, len(t.Mus))
	for i, T := range t.Temperatures {
		for j, mu := range t.Mus {
			in <- Point{T: T, Mu: mu, Omega: t.Omega.At(i, j)}
		}
	}
	close(in)
	return <-done
}

// StartPointWriter streams each Point as one JSON line.
func StartPointWriter(out io.Writer, bufSize int) (chan<- Point, <-chan error) {
	return jsonlutil.Start[Point](out, bufSize,
		func(enc *json.Encoder, p Point) error { return enc.Encode(p) },
		IsBrokenPipe,
	)
}
