package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type RichContentKind string

const (
	RichTable RichContentKind = "table"
	RichLine  RichContentKind = "line"
	RichBar   RichContentKind = "bar"
	RichPie   RichContentKind = "pie"
)

var ErrUnknownRichContent = errors.New("unknown rich content type")

// RichContent is a chart or table attached to a step. Exactly one of the
// payload fields is set, matching Type.
type RichContent struct {
	Type  RichContentKind
	Table *TableData
	Line  *SeriesChart
	Bar   *SeriesChart
	Pie   *PieChart
}

type TableData struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers" validate:"required,min=1,dive,required"`
	Rows    [][]string `json:"rows" validate:"dive,required"`
}

// SeriesChart backs both line and bar charts.
type SeriesChart struct {
	Title    string   `json:"title,omitempty"`
	Labels   []string `json:"labels" validate:"required,min=1"`
	Datasets []Series `json:"datasets" validate:"required,min=1,dive"`
}

type Series struct {
	Label  string    `json:"label" validate:"required"`
	Values []float64 `json:"values" validate:"required"`
}

type PieChart struct {
	Title  string     `json:"title,omitempty"`
	Slices []PieSlice `json:"slices" validate:"required,min=1,dive"`
}

type PieSlice struct {
	Label string  `json:"label" validate:"required"`
	Value float64 `json:"value" validate:"gte=0"`
	Color string  `json:"color,omitempty"`
}

type richContentWire struct {
	Type RichContentKind `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (rc RichContent) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch rc.Type {
	case RichTable:
		data = rc.Table
	case RichLine:
		data = rc.Line
	case RichBar:
		data = rc.Bar
	case RichPie:
		data = rc.Pie
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRichContent, rc.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(richContentWire{Type: rc.Type, Data: raw})
}

func (rc *RichContent) UnmarshalJSON(b []byte) error {
	var w richContentWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := RichContent{Type: w.Type}
	var target interface{}
	switch w.Type {
	case RichTable:
		out.Table = &TableData{}
		target = out.Table
	case RichLine:
		out.Line = &SeriesChart{}
		target = out.Line
	case RichBar:
		out.Bar = &SeriesChart{}
		target = out.Bar
	case RichPie:
		out.Pie = &PieChart{}
		target = out.Pie
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRichContent, w.Type)
	}
	if len(w.Data) == 0 || string(w.Data) == "null" {
		return fmt.Errorf("rich content %q: missing data", w.Type)
	}
	if err := json.Unmarshal(w.Data, target); err != nil {
		return fmt.Errorf("rich content %q: %w", w.Type, err)
	}
	*rc = out
	return nil
}

var validate = validator.New()

// Validate checks the payload against the schema of its kind.
func (rc RichContent) Validate() error {
	switch rc.Type {
	case RichTable:
		if rc.Table == nil {
			return errors.New("table: missing data")
		}
		if err := validate.Struct(rc.Table); err != nil {
			return fmt.Errorf("table: %w", err)
		}
		for i, row := range rc.Table.Rows {
			if len(row) != len(rc.Table.Headers) {
				return fmt.Errorf("table: row %d has %d cells, want %d", i, len(row), len(rc.Table.Headers))
			}
		}
	case RichLine, RichBar:
		chart := rc.Line
		if rc.Type == RichBar {
			chart = rc.Bar
		}
		if chart == nil {
			return fmt.Errorf("%s: missing data", rc.Type)
		}
		if err := validate.Struct(chart); err != nil {
			return fmt.Errorf("%s: %w", rc.Type, err)
		}
		for _, ds := range chart.Datasets {
			if len(ds.Values) != len(chart.Labels) {
				return fmt.Errorf("%s: dataset %q has %d values, want %d", rc.Type, ds.Label, len(ds.Values), len(chart.Labels))
			}
		}
	case RichPie:
		if rc.Pie == nil {
			return errors.New("pie: missing data")
		}
		if err := validate.Struct(rc.Pie); err != nil {
			return fmt.Errorf("pie: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRichContent, rc.Type)
	}
	return nil
}
