package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hingecraft/internal/domain"
	"hingecraft/pkg/zip"
)

// Format selects an export rendering.
type Format string

const (
	FormatJSON   Format = "json"
	FormatXLSX   Format = "xlsx"
	FormatBundle Format = "bundle"
)

// Content types for each format.
const (
	ContentTypeJSON = "application/json"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeZip  = "application/zip"
)

// Artifact is one rendered export.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ParseFormat accepts the format names used by the CLI and routes.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatBundle, "zip":
		return FormatBundle, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// Render produces the artifact for format.
func Render(snap *domain.Snapshot, format Format) (*Artifact, error) {
	if snap == nil {
		return nil, fmt.Errorf("export: snapshot is required")
	}
	switch format {
	case FormatJSON:
		data, err := JSON(snap)
		if err != nil {
			return nil, err
		}
		return &Artifact{Filename: FileName(snap.Timestamp, "json"), ContentType: ContentTypeJSON, Data: data}, nil
	case FormatXLSX:
		data, err := XLSX(snap)
		if err != nil {
			return nil, err
		}
		return &Artifact{Filename: FileName(snap.Timestamp, "xlsx"), ContentType: ContentTypeXLSX, Data: data}, nil
	case FormatBundle:
		data, err := Bundle(snap)
		if err != nil {
			return nil, err
		}
		return &Artifact{Filename: FileName(snap.Timestamp, "zip"), ContentType: ContentTypeZip, Data: data}, nil
	}
	return nil, fmt.Errorf("export: unknown format %q", format)
}

// FileName builds a sortable file name such as
// donations_20240102T030405Z.json.
func FileName(ts time.Time, ext string) string {
	return fmt.Sprintf("donations_%s.%s", ts.UTC().Format("20060102T150405Z"), ext)
}

// JSON renders the snapshot document with indentation.
func JSON(snap *domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(NewDocument(snap), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode json: %w", err)
	}
	return data, nil
}

// Bundle packs the JSON and XLSX renderings into one zip archive.
func Bundle(snap *domain.Snapshot) ([]byte, error) {
	jsonData, err := JSON(snap)
	if err != nil {
		return nil, err
	}
	xlsxData, err := XLSX(snap)
	if err != nil {
		return nil, err
	}
	data, err := zip.Archive([]zip.Entry{
		{Filename: FileName(snap.Timestamp, "json"), Modified: snap.Timestamp, Data: jsonData},
		{Filename: FileName(snap.Timestamp, "xlsx"), Modified: snap.Timestamp, Data: xlsxData},
	})
	if err != nil {
		return nil, fmt.Errorf("export: bundle: %w", err)
	}
	return data, nil
}
