package models

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BudgetsToExcel renders the ledger as a spreadsheet for download. Amounts
// are written as floats so the cells stay numeric in the export.
func BudgetsToExcel(budgets []Budget) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}

	headers := []string{"Item", "Date", "Client", "Description", "Amount", "Discount", "Status", "Order", "Invoice Sent", "Requester"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, h)
	}

	for i, b := range budgets {
		row := i + 2
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), b.ItemNumber)
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), b.Date)
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), b.ClientName)
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), b.ServiceDescription)
		f.SetCellValue(sheet, "E"+fmt.Sprint(row), b.BudgetAmount.InexactFloat64())
		f.SetCellValue(sheet, "F"+fmt.Sprint(row), b.Discount.InexactFloat64())
		f.SetCellValue(sheet, "G"+fmt.Sprint(row), string(b.Status))
		f.SetCellValue(sheet, "H"+fmt.Sprint(row), b.OrderNumber)
		f.SetCellValue(sheet, "I"+fmt.Sprint(row), b.InvoiceSent)
		f.SetCellValue(sheet, "J"+fmt.Sprint(row), b.Requester)
	}

	return f, nil
}
