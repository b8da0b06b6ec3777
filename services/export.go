package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"krishi-mitra-backend/models"

	"github.com/xuri/excelize/v2"
)

// Export formats accepted by ExportFAQ.
const (
	ExportFormatJSON  = "json"
	ExportFormatExcel = "excel"
	ExportFormatBoth  = "both"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	faqSheetName     = "FAQ"
	summarySheetName = "Summary"
)

// FAQExport is a rendered export ready to be sent as a download.
type FAQExport struct {
	Filename    string
	ContentType string
	Data        []byte
	RecordCount int
}

// faqExportData is the JSON form of an export.
type faqExportData struct {
	ExportDate   time.Time         `json:"export_date"`
	TotalRecords int               `json:"total_records"`
	Entries      []models.FAQEntry `json:"entries"`
}

// ExportFAQ renders the cached question/answer pairs as JSON, an Excel workbook, or a
// ZIP holding both.
func ExportFAQ(entries []models.FAQEntry, format string, now time.Time) (*FAQExport, error) {
	stamp := now.Format("20060102_150405")
	switch format {
	case ExportFormatJSON:
		data, err := faqJSON(entries, now)
		if err != nil {
			return nil, err
		}
		return &FAQExport{
			Filename:    fmt.Sprintf("faq_export_%s.json", stamp),
			ContentType: "application/json",
			Data:        data,
			RecordCount: len(entries),
		}, nil

	case ExportFormatExcel, "":
		data, err := faqWorkbook(entries, now)
		if err != nil {
			return nil, err
		}
		return &FAQExport{
			Filename:    fmt.Sprintf("faq_export_%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
			RecordCount: len(entries),
		}, nil

	case ExportFormatBoth:
		data, err := faqZip(entries, now)
		if err != nil {
			return nil, err
		}
		return &FAQExport{
			Filename:    fmt.Sprintf("faq_export_%s.zip", stamp),
			ContentType: "application/zip",
			Data:        data,
			RecordCount: len(entries),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func faqJSON(entries []models.FAQEntry, now time.Time) ([]byte, error) {
	if entries == nil {
		entries = []models.FAQEntry{}
	}
	data, err := json.MarshalIndent(faqExportData{
		ExportDate:   now.UTC(),
		TotalRecords: len(entries),
		Entries:      entries,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

func faqWorkbook(entries []models.FAQEntry, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", faqSheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(faqSheetName, "A1", &[]interface{}{"#", "Question", "Answer"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for i, e := range entries {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(faqSheetName, cell, &[]interface{}{i + 1, e.Query, e.Answer}); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	f.SetColWidth(faqSheetName, "A", "A", 6)
	f.SetColWidth(faqSheetName, "B", "B", 50)
	f.SetColWidth(faqSheetName, "C", "C", 100)

	if _, err := f.NewSheet(summarySheetName); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Export Date", now.Format("2006-01-02 15:04:05")},
		{"Total Records", len(entries)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheetName, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func faqZip(entries []models.FAQEntry, now time.Time) ([]byte, error) {
	jsonData, err := faqJSON(entries, now)
	if err != nil {
		return nil, err
	}
	xlsxData, err := faqWorkbook(entries, now)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	files := []struct {
		name string
		data []byte
	}{
		{"faq_export.json", jsonData},
		{"faq_export.xlsx", xlsxData},
	}
	for _, file := range files {
		w, err := zipWriter.Create(file.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s in ZIP: %w", file.name, err)
		}
		if _, err := w.Write(file.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", file.name, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ZIP: %w", err)
	}
	return buf.Bytes(), nil
}
