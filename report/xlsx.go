package report

import (
	"io"

	extErrors "github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

// WriteXLSX renders rev as a single sheet workbook
func WriteXLSX(w io.Writer, rev *Revenue) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Revenue", rev.From.Format(dateLayout), rev.To.Format(dateLayout)}); err != nil {
		return extErrors.Wrap(err, "Cannot write report title")
	}
	header := []interface{}{"Plan", "Subscriptions", "Amount charged", "Days added"}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return extErrors.Wrap(err, "Cannot write report header")
	}

	row := 4
	for _, r := range rev.Rows {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		amount, _ := r.AmountCharged.Float64()
		days, _ := r.DaysAdded.Round(2).Float64()
		values := []interface{}{r.PlanName, r.Subscriptions, amount, days}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return extErrors.Wrap(err, "Cannot write report row")
		}
		row++
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	total, _ := rev.Total.Float64()
	if err := f.SetSheetRow(sheet, cell, &[]interface{}{"Total", rev.Subscriptions, total}); err != nil {
		return extErrors.Wrap(err, "Cannot write report total")
	}

	return f.Write(w)
}
