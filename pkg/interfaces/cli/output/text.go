package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	okColor       = color.New(color.FgGreen)
	warnColor     = color.New(color.FgYellow)
	criticalColor = color.New(color.FgRed, color.Bold)
)

// generateTextOutput creates human-readable text output
func generateTextOutput(result *dto.RunResult, config Config) error {
	if config.OutputDir == "" {
		writeText(config.stdout(), NewReport(result), config.Verbose)
		return nil
	}

	path, err := outputPath(config, "plan.txt")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	prev := color.NoColor
	color.NoColor = true
	writeText(f, NewReport(result), config.Verbose)
	color.NoColor = prev

	fmt.Fprintf(config.stdout(), "Results saved to: %s\n", path)
	return nil
}

func writeText(w io.Writer, r *Report, verbose bool) {
	p := r.Plan
	fmt.Fprintln(w, headerColor.Sprintf("%s plan %s (%s)", p.Type, p.Number, p.ID))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Status:        %s\n", statusColor(p.Status).Sprint(p.Status))
	if p.FailureReason != "" {
		fmt.Fprintf(w, "Failure:       %s\n", criticalColor.Sprint(p.FailureReason))
	}
	fmt.Fprintf(w, "Horizon:       %s .. %s (%d-day buckets)\n", p.HorizonStart, p.HorizonEnd, p.BucketDays)
	fmt.Fprintf(w, "Capacity mode: %s\n", p.CapacityMode)
	fmt.Fprintf(w, "Run:           #%d in %s\n", p.RunCount, p.Duration)
	fmt.Fprintf(w, "Products:      %d\n", p.Products)
	fmt.Fprintf(w, "Orders:        %d (%d late)\n", len(r.PlannedOrders), p.LateOrders)
	fmt.Fprintf(w, "Overloaded:    %d buckets\n\n", p.Overloaded)

	if len(r.PlannedOrders) > 0 {
		fmt.Fprintln(w, headerColor.Sprint("Planned Orders"))
		fmt.Fprintf(w, "%-20s %-8s %12s %-12s %-12s %-10s\n", "Product", "Type", "Qty", "Start", "End", "Status")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 79))
		for _, o := range r.PlannedOrders {
			line := fmt.Sprintf("%-20s %-8s %12s %-12s %-12s %-10s", o.ProductID, o.OrderType, o.Quantity, o.Start, o.End, o.Status)
			if o.Late {
				line = warnColor.Sprint(line + " LATE")
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}

	if verbose && len(r.Requirements) > 0 {
		fmt.Fprintln(w, headerColor.Sprint("Requirements"))
		fmt.Fprintf(w, "%-20s %-12s %10s %10s %10s %10s %10s %10s\n", "Product", "Bucket", "Gross", "Receipts", "OnHand", "Net", "Receipt", "Release")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 99))
		for _, q := range r.Requirements {
			fmt.Fprintf(w, "%-20s %-12s %10s %10s %10s %10s %10s %10s\n",
				q.ProductID, q.Bucket, q.Gross, q.Receipts, q.OnHand, q.Net, q.PlannedReceipt, q.PlannedRelease)
		}
		fmt.Fprintln(w)
	}

	if len(r.Capacity) > 0 {
		fmt.Fprintln(w, headerColor.Sprint("Capacity"))
		fmt.Fprintf(w, "%-16s %-12s %10s %10s %9s %-12s\n", "Work Center", "Bucket", "Available", "Required", "Load %", "Status")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 74))
		for _, c := range r.Capacity {
			if !verbose && c.Required == "0.00" {
				continue
			}
			fmt.Fprintf(w, "%-16s %-12s %10s %10s %9s %s\n",
				c.WorkCenterID, c.Bucket, c.Available, c.Required, c.LoadPercent, statusColor(c.Status).Sprintf("%-12s", c.Status))
		}
		fmt.Fprintln(w)
	}

	if len(r.CriticalPaths) > 0 {
		fmt.Fprintln(w, headerColor.Sprint("Critical Paths"))
		for _, cp := range r.CriticalPaths {
			fmt.Fprintf(w, "%-20s %3d days  %s\n", cp.ProductID, cp.TotalLeadTime, cp.Path)
		}
		fmt.Fprintln(w)
	}

	if len(r.Exceptions) > 0 {
		fmt.Fprintln(w, headerColor.Sprint("Exceptions"))
		for _, e := range r.Exceptions {
			subject := e.ProductID
			if e.WorkCenterID != "" {
				subject = e.WorkCenterID
			}
			fmt.Fprintf(w, "%s %-22s %-16s %s\n", statusColor(e.Severity).Sprintf("%-9s", e.Severity), e.Type, subject, e.Message)
			if e.SuggestedAction != "" {
				fmt.Fprintf(w, "%-9s %s %s\n", "", color.New(color.Faint).Sprint("→"), e.SuggestedAction)
			}
		}
	}
}

func statusColor(s string) *color.Color {
	switch s {
	case "Completed", "Approved", "OK", "Low":
		return okColor
	case "Failed", "Bottleneck", "Critical":
		return criticalColor
	default:
		return warnColor
	}
}
