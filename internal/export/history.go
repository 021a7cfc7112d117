// Package export renders quiz history for download.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"quizwhiz-service/internal/domain"
)

// HistorySheet is the worksheet holding exported results.
const HistorySheet = "History"

var historyHeader = []any{"Timestamp", "Subject", "Topic", "Score", "Questions", "Percentage"}

// WriteHistory writes results of userID as an xlsx workbook to w, one row
// per result in the order given.
func WriteHistory(w io.Writer, userID string, results []domain.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Quiz history",
		Subject: userID,
		Creator: "quizwhiz",
	}); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}

	if err := f.SetSheetRow(HistorySheet, "A1", &historyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			r.Subject,
			r.Topic,
			r.Score,
			r.NumQuestions,
			r.Percentage(),
		}
		if err := f.SetSheetRow(HistorySheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(HistorySheet, "A", "C", 22); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
