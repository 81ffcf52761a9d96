// Package export renders trajectories as text, CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/statespace/internal/statespace"
	"github.com/san-kum/statespace/internal/trajectory"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, csv or json)", s)
}

// Metadata describes the run a trajectory came from.
type Metadata struct {
	Model   string  `json:"model"`
	Stepper string  `json:"stepper"`
	Form    string  `json:"form"`
	Step    float64 `json:"step_s"`
	Span    float64 `json:"span_s"`
}

// Write dispatches on f.
func Write(w io.Writer, f Format, meta Metadata, result *trajectory.Result) error {
	switch f {
	case FormatText:
		return WriteText(w, result)
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatJSON:
		return WriteJSON(w, meta, result)
	}
	return fmt.Errorf("unknown format %q", f)
}

// WriteText writes one "t=<elapsed>: {...}" line per sample.
func WriteText(w io.Writer, result *trajectory.Result) error {
	for _, s := range result.Samples {
		if _, err := fmt.Fprintf(w, "t=%v: %v\n", s.Elapsed, s.State); err != nil {
			return err
		}
	}
	return nil
}

// Header returns the CSV header for schema: elapsed seconds followed by one
// column per field, with the field's unit in brackets when it has one.
func Header(schema *statespace.Schema) []string {
	header := []string{"t_s"}
	for _, f := range schema.Fields() {
		col := f.Name
		if u := f.Dims.String(); u != "" {
			col += "[" + u + "]"
		}
		header = append(header, col)
	}
	return header
}

func WriteCSV(w io.Writer, result *trajectory.Result) error {
	cw := csv.NewWriter(w)
	if len(result.Samples) == 0 {
		return nil
	}

	if err := cw.Write(Header(result.Samples[0].State.Schema())); err != nil {
		return err
	}
	for _, s := range result.Samples {
		row := []string{strconv.FormatFloat(s.Elapsed.Seconds(), 'f', -1, 64)}
		for _, val := range s.State.Floats() {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Data is the JSON document written by WriteJSON.
type Data struct {
	Metadata
	Fields  []string           `json:"fields"`
	Steps   int                `json:"steps"`
	Times   []float64          `json:"times"`
	States  [][]float64        `json:"states"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

func NewData(meta Metadata, result *trajectory.Result) Data {
	data := Data{
		Metadata: meta,
		Steps:    result.StepsTaken,
		Times:    make([]float64, len(result.Samples)),
		States:   make([][]float64, len(result.Samples)),
		Metrics:  result.Metrics,
	}
	for i, s := range result.Samples {
		data.Times[i] = s.Elapsed.Seconds()
		data.States[i] = s.State.Floats()
	}
	if len(result.Samples) > 0 {
		data.Fields = result.Samples[0].State.Schema().Names()
	}
	return data
}

func WriteJSON(w io.Writer, meta Metadata, result *trajectory.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewData(meta, result))
}
