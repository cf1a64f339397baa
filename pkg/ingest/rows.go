// Package ingest turns tabular corridor datasets into corridor graphs.
//
// A Source yields raw rows keyed by column name. The Builder parses those
// rows, asks an optional Predictor for metrics a row is missing, and freezes
// the result into an immutable corridor.Graph.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

// Column names that identify a corridor's endpoints.
const (
	ColSource      = "source_country"
	ColDestination = "destination_country"
)

// Row outcomes reported to the Recorder.
const (
	RowAccepted  = "accepted"
	RowPredicted = "predicted"
	RowSkipped   = "skipped"
	RowInvalid   = "invalid"
)

var (
	// ErrNoCorridors is returned when a dataset yields no usable corridor.
	ErrNoCorridors = errors.New("dataset contains no usable corridors")
	// errMissingEndpoint marks rows without a source or destination.
	errMissingEndpoint = errors.New("missing source or destination")
)

// Row is one record of a corridor dataset, keyed by column name.
type Row map[string]string

// Source produces corridor rows.
type Source interface {
	// Name identifies the source in logs and graph stats. It never contains credentials.
	Name() string
	Rows(ctx context.Context) ([]Row, error)
	Close() error
}

// parsedRow is a row that passed validation.
type parsedRow struct {
	index    int
	from, to string
	attrs    corridor.Attributes
	raw      Row
}

// parseRow converts a raw row into corridor attributes. Numeric columns that
// are not part of the fixed record are kept in Meta; text columns are dropped.
// Record columns must be non-negative.
func parseRow(index int, row Row) (parsedRow, error) {
	from := strings.TrimSpace(row[ColSource])
	to := strings.TrimSpace(row[ColDestination])
	if from == "" || to == "" {
		return parsedRow{}, errMissingEndpoint
	}

	p := parsedRow{index: index, from: from, to: to, raw: row}
	for col, raw := range row {
		if col == ColSource || col == ColDestination {
			continue
		}
		v, ok, err := parseNumber(raw)
		if err != nil {
			if isRecordColumn(col) {
				return parsedRow{}, fmt.Errorf("column %s: %w", col, err)
			}
			continue
		}
		if !ok {
			continue
		}
		if v < 0 && isRecordColumn(col) {
			return parsedRow{}, fmt.Errorf("column %s: negative value %g", col, v)
		}
		switch col {
		case corridor.AttrFriction:
			p.attrs.Friction = corridor.Float(v)
		case corridor.AttrTotalCostPct:
			p.attrs.TotalCostPct = corridor.Float(v)
		case corridor.AttrSettlementTimeDays:
			p.attrs.SettlementTimeDays = corridor.Float(v)
		case corridor.AttrFXSpreadBps:
			p.attrs.FXSpreadBps = v
		case corridor.AttrTransferFeePercent:
			p.attrs.TransferFeePercent = v
		case corridor.AttrTaxRatePercent:
			p.attrs.TaxRatePercent = v
		default:
			if p.attrs.Meta == nil {
				p.attrs.Meta = make(map[string]float64)
			}
			p.attrs.Meta[col] = v
		}
	}
	return p, nil
}

func isRecordColumn(col string) bool {
	switch col {
	case corridor.AttrFriction, corridor.AttrTotalCostPct, corridor.AttrSettlementTimeDays,
		corridor.AttrFXSpreadBps, corridor.AttrTransferFeePercent, corridor.AttrTaxRatePercent:
		return true
	}
	return false
}

// parseNumber parses a cell. Blank cells and NaN markers are absent values.
func parseNumber(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na", "n/a":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	if math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("not a finite number: %q", s)
	}
	return v, true, nil
}

// features returns the numeric cells of a row for the predictor.
func features(row Row) map[string]float64 {
	out := make(map[string]float64, len(row))
	for col, raw := range row {
		if col == ColSource || col == ColDestination {
			continue
		}
		if v, ok, err := parseNumber(raw); err == nil && ok {
			out[col] = v
		}
	}
	return out
}

// formatValue renders a driver value as a row cell.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
