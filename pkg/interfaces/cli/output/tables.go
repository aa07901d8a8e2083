package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
)

// table is one flat sheet of the report
type table struct {
	name   string
	header []string
	rows   [][]string
}

func (r *Report) tables() []table {
	orders := table{name: "planned_orders", header: []string{"id", "product_id", "order_type", "quantity", "start", "end", "status", "low_level_code", "late", "trace"}}
	for _, o := range r.PlannedOrders {
		orders.rows = append(orders.rows, []string{o.ID, o.ProductID, o.OrderType, o.Quantity, o.Start, o.End, o.Status,
			strconv.Itoa(o.LowLevelCode), strconv.FormatBool(o.Late), o.Trace})
	}

	reqs := table{name: "requirements", header: []string{"product_id", "bucket", "low_level_code", "gross", "scheduled_receipts", "on_hand", "safety_stock", "net", "planned_receipt", "planned_release", "projected_on_hand"}}
	for _, q := range r.Requirements {
		reqs.rows = append(reqs.rows, []string{q.ProductID, q.Bucket, strconv.Itoa(q.LowLevelCode), q.Gross, q.Receipts, q.OnHand,
			q.SafetyStock, q.Net, q.PlannedReceipt, q.PlannedRelease, q.ProjectedOnHand})
	}

	capacity := table{name: "capacity", header: []string{"work_center_id", "bucket", "available_hours", "required_hours", "load_percent", "over_hours", "status", "shifted_out", "shifted_to"}}
	for _, c := range r.Capacity {
		capacity.rows = append(capacity.rows, []string{c.WorkCenterID, c.Bucket, c.Available, c.Required, c.LoadPercent, c.Over, c.Status, c.ShiftedOut, c.ShiftedTo})
	}

	exceptions := table{name: "exceptions", header: []string{"id", "type", "severity", "product_id", "work_center_id", "message", "suggested_action", "resolved"}}
	for _, e := range r.Exceptions {
		exceptions.rows = append(exceptions.rows, []string{e.ID, e.Type, e.Severity, e.ProductID, e.WorkCenterID, e.Message, e.SuggestedAction, strconv.FormatBool(e.Resolved)})
	}

	return []table{orders, reqs, capacity, exceptions}
}

// generateCSVOutput writes one CSV file per report table
func generateCSVOutput(result *dto.RunResult, config Config) error {
	for _, t := range NewReport(result).tables() {
		path, err := outputPath(config, t.name+".csv")
		if err != nil {
			return err
		}
		if err := writeCSV(path, t); err != nil {
			return fmt.Errorf("failed to write %s CSV: %w", t.name, err)
		}
		if config.Verbose {
			fmt.Fprintf(config.stdout(), "Results saved to: %s\n", path)
		}
	}
	return nil
}

func writeCSV(path string, t table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.header); err != nil {
		return err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return err
	}
	return f.Sync()
}

// generateXLSXOutput writes a workbook with a summary sheet and one sheet per table
func generateXLSXOutput(result *dto.RunResult, config Config) error {
	path, err := outputPath(config, "plan.xlsx")
	if err != nil {
		return err
	}

	report := NewReport(result)
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	const summary = "summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	p := report.Plan
	summaryRows := [][]any{
		{"plan", p.ID},
		{"number", p.Number},
		{"type", p.Type},
		{"status", p.Status},
		{"horizon", p.HorizonStart + " .. " + p.HorizonEnd},
		{"bucket_days", p.BucketDays},
		{"capacity_mode", p.CapacityMode},
		{"processed_products", p.Products},
		{"planned_orders", len(report.PlannedOrders)},
		{"late_orders", p.LateOrders},
		{"overloaded_buckets", p.Overloaded},
		{"exceptions", len(report.Exceptions)},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return err
		}
	}
	f.SetColWidth(summary, "A", "A", 22)

	for _, t := range report.tables() {
		if _, err := f.NewSheet(t.name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", t.name, err)
		}
		if err := f.SetSheetRow(t.name, "A1", &t.header); err != nil {
			return err
		}
		lastHeader, _ := excelize.CoordinatesToCellName(len(t.header), 1)
		f.SetCellStyle(t.name, "A1", lastHeader, headerStyle)
		for i, row := range t.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow(t.name, cell, &row); err != nil {
				return err
			}
		}
		f.SetPanes(t.name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.stdout(), "Results saved to: %s\n", path)
	}
	return nil
}
