// Package importer parses the connections CSV exported from LinkedIn's
// "Get a copy of your data" page and loads it into the connection store.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
)

// connectedOnFormat matches LinkedIn's "Connected On" column, e.g.
// "12 Mar 2026".
const connectedOnFormat = "02 Jan 2006"

// Result summarizes one import pass.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer loads LinkedIn connection exports.
type Importer struct {
	connections models.ConnectionRepository
	logger      *slog.Logger
}

// New creates an importer over the connection store.
func New(connections models.ConnectionRepository, logger *slog.Logger) *Importer {
	return &Importer{connections: connections, logger: logger}
}

// Import reads a connections CSV and upserts each row keyed by profile URL,
// so re-importing the same export is idempotent. Malformed rows and rows
// without a profile URL are counted and skipped rather than failing the
// import; LinkedIn exports routinely contain contacts with hidden data.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // exports pad notes rows inconsistently

	header, err := i.readHeader(reader)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}

		conn, ok := i.parseRow(header, record)
		if !ok {
			result.Skipped++
			continue
		}

		if err := i.connections.Store(ctx, conn); err != nil {
			return nil, fmt.Errorf("failed to store connection %s: %w", conn.ProfileURL, err)
		}
		result.Imported++
	}

	i.logger.Info("connections import finished",
		"imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// readHeader locates the column header row. LinkedIn prepends a free-text
// notes paragraph to the export, so rows are scanned until one containing
// the URL column appears.
func (i *Importer) readHeader(reader *csv.Reader) (map[string]int, error) {
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("no header row found")
		}
		if err != nil {
			continue
		}

		header := make(map[string]int, len(record))
		for idx, name := range record {
			header[strings.TrimSpace(name)] = idx
		}
		if _, ok := header["URL"]; ok {
			return header, nil
		}
	}
}

func (i *Importer) parseRow(header map[string]int, record []string) (*models.Connection, bool) {
	field := func(name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	profileURL := field("URL")
	if profileURL == "" {
		return nil, false
	}

	conn := &models.Connection{
		FirstName:  field("First Name"),
		LastName:   field("Last Name"),
		ProfileURL: profileURL,
		Email:      field("Email Address"),
		Company:    field("Company"),
		Position:   field("Position"),
	}

	if raw := field("Connected On"); raw != "" {
		if connectedAt, err := time.Parse(connectedOnFormat, raw); err == nil {
			conn.ConnectedAt = &connectedAt
		} else {
			i.logger.Debug("unparseable connected-on date", "value", raw)
		}
	}

	return conn, true
}
