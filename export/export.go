// Package export implements the data-export processor.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/persistence"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Payload is the body of a data-export job.
type Payload struct {
	Entity      string         `json:"entity"`
	Filters     map[string]any `json:"filters,omitempty"`
	Format      string         `json:"format"`
	RequestedBy string         `json:"requestedBy,omitempty"`
}

// Result describes the stored artifact.
type Result struct {
	ExportID  string `json:"exportId"`
	Entity    string `json:"entity"`
	Format    string `json:"format"`
	RowCount  int    `json:"rowCount"`
	SizeBytes int    `json:"sizeBytes"`
}

// Processor exports entity rows through a persistence.Exporter.
type Processor struct {
	exporter persistence.Exporter
	logger   *slog.Logger
}

var _ job.Processor = (*Processor)(nil)

// NewProcessor returns a data-export processor.
func NewProcessor(exporter persistence.Exporter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{exporter: exporter, logger: logger}
}

// Process implements job.Processor.
func (p *Processor) Process(ctx context.Context, raw json.RawMessage) (any, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, jobs.Permanent(fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err))
	}
	if payload.Format == "" {
		payload.Format = FormatCSV
	}
	if payload.Entity == "" {
		return nil, jobs.Permanent(fmt.Errorf("%w: entity is required", jobs.ErrInvalidPayload))
	}

	encode, contentType, ok := encoderFor(payload.Format)
	if !ok {
		return nil, jobs.Permanent(fmt.Errorf("%w: unsupported format %q", jobs.ErrInvalidPayload, payload.Format))
	}

	rows, err := p.exporter.FetchRows(ctx, payload.Entity, payload.Filters)
	if err != nil {
		return nil, classify(fmt.Errorf("fetch %s rows: %w", payload.Entity, err))
	}
	p.reportProgress(ctx, 50)

	data, err := encode(rows)
	if err != nil {
		return nil, jobs.Permanent(fmt.Errorf("encode %s export: %w", payload.Format, err))
	}
	p.reportProgress(ctx, 80)

	exportID, err := p.exporter.SaveExport(ctx, persistence.ExportArtifact{
		Entity:      payload.Entity,
		Format:      payload.Format,
		ContentType: contentType,
		Data:        data,
		RowCount:    len(rows),
		RequestedBy: payload.RequestedBy,
		Filters:     payload.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	p.logger.Info("export stored",
		slog.String("export_id", exportID),
		slog.String("entity", payload.Entity),
		slog.String("format", payload.Format),
		slog.Int("rows", len(rows)),
	)

	return Result{
		ExportID:  exportID,
		Entity:    payload.Entity,
		Format:    payload.Format,
		RowCount:  len(rows),
		SizeBytes: len(data),
	}, nil
}

func classify(err error) error {
	if errors.Is(err, persistence.ErrUnknownTable) || errors.Is(err, persistence.ErrInvalidFilter) {
		return jobs.Permanent(err)
	}
	return err
}

type encoder func(rows []map[string]any) ([]byte, error)

func encoderFor(format string) (encoder, string, bool) {
	switch format {
	case FormatCSV:
		return encodeCSV, "text/csv", true
	case FormatJSON:
		return encodeJSON, "application/json", true
	}
	return nil, "", false
}

func encodeJSON(rows []map[string]any) ([]byte, error) {
	if rows == nil {
		rows = []map[string]any{}
	}
	return json.Marshal(rows)
}

// encodeCSV writes a header of every column seen, sorted, then one record
// per row.
func encodeCSV(rows []map[string]any) ([]byte, error) {
	cols := columns(rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			cell, err := formatCell(row[c])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			record[i] = cell
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func columns(rows []map[string]any) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			set[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func formatCell(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func (p *Processor) reportProgress(ctx context.Context, pct int) {
	if err := job.ReportProgress(ctx, pct); err != nil {
		p.logger.Debug("export progress update failed",
			slog.Int("progress", pct),
			slog.String("error", err.Error()),
		)
	}
}
