// Package export produces an XLSX workbook summarizing a batch of extracted
// appraisal records.
package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zhada/appraisal-extractor/internal/entity"
)

// Row pairs a loan key with its extracted record for the workbook.
type Row struct {
	Key    string
	Record *entity.ExtractedRecord
}

// Service renders extraction results as XLSX bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportRecordsXLSX returns an XLSX workbook (as bytes) with one row per
// processed document.
func (s *Service) ExportRecordsXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Appraisals"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIndex, _ := f.GetSheetIndex("Sheet1"); defIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Loan Key",
		"Filename",
		"Form Type",
		"Property Address",
		"Effective Date",
		"Appraiser",
		"Borrower",
		"Subject Value",
		"As-Is Value",
		"ARV Value",
		"Comparables",
		"Complete",
		"Missing Fields",
		"Anomalies",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for rowIdx, row := range rows {
		rec := row.Record
		if rec == nil {
			continue
		}
		values := []any{
			row.Key,
			rec.Filename,
			rec.FormType,
			rec.PropertyAddress,
			rec.EffectiveDate,
			rec.AppraiserName,
			rec.BorrowerName,
			rec.SubjectValue,
			rec.AsIsValue,
			rec.ARVValue,
			len(rec.AllComparables()),
			rec.Complete,
			strings.Join(rec.MissingFields, "; "),
			strings.Join(rec.Anomalies, "; "),
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", rowIdx+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.done",
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
