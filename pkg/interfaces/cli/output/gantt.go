package output

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

const (
	makeColor = "#4CAF50"
	buyColor  = "#2196F3"
	lateColor = "#E53935"
	otherGray = "#9E9E9E"
)

// GanttChart lays planned orders out on the plan horizon, one row per product
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
	BucketDays   int
}

// GanttBar is one planned order on the chart
type GanttBar struct {
	OrderID   string
	ProductID entities.ProductID
	OrderType entities.OrderType
	Quantity  string
	Start     time.Time
	End       time.Time
	Late      bool
	X         int
	Width     int
	Color     string
}

// NewGanttChart sizes a chart for the run's horizon and product count
func NewGanttChart(result *dto.RunResult) *GanttChart {
	products := make(map[entities.ProductID]bool)
	for _, o := range result.Outputs.PlannedOrders {
		products[o.ProductID] = true
	}

	start, end := result.Plan.Horizon.Start, result.Plan.Horizon.End.AddDate(0, 0, 1)
	for _, o := range result.Outputs.PlannedOrders {
		if o.PlannedStart.Before(start) {
			start = o.PlannedStart
		}
	}

	const rowHeight = 26
	return &GanttChart{
		Width:        1200,
		Height:       max(len(products), 1)*rowHeight + 150,
		MarginLeft:   200,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 60,
		RowHeight:    rowHeight,
		StartTime:    start,
		EndTime:      end,
		BucketDays:   max(result.Plan.Horizon.BucketDays, 1),
	}
}

// GenerateSVG renders the planned orders of the run as an SVG document
func (gc *GanttChart) GenerateSVG(result *dto.RunResult) string {
	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height)
	svg.WriteString(`<style>`)
	svg.WriteString(`.label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.axis { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`</style>`)
	fmt.Fprintf(&svg, `<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height)
	fmt.Fprintf(&svg, `<text x="%d" y="30" class="title">Plan %s schedule</text>`,
		gc.MarginLeft, html.EscapeString(result.Plan.Number))

	if len(result.Outputs.PlannedOrders) == 0 {
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="label">No planned orders</text>`, gc.MarginLeft, gc.MarginTop+20)
		svg.WriteString(`</svg>`)
		return svg.String()
	}

	rows, products := gc.rows(gc.createBars(result.Outputs.PlannedOrders))
	gc.drawBuckets(&svg, len(products))
	for i, product := range products {
		y := gc.MarginTop + i*gc.RowHeight
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="label" text-anchor="end">%s</text>`,
			gc.MarginLeft-10, y+gc.RowHeight/2+4, html.EscapeString(string(product)))
		fmt.Fprintf(&svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid"/>`,
			gc.MarginLeft, y+gc.RowHeight, gc.Width-gc.MarginRight, y+gc.RowHeight)
		for _, bar := range rows[product] {
			gc.drawBar(&svg, bar, y)
		}
	}
	gc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (gc *GanttChart) xOf(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	if total <= 0 {
		return gc.MarginLeft
	}
	return gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
}

func (gc *GanttChart) createBars(orders []entities.PlannedOrder) []GanttBar {
	bars := make([]GanttBar, 0, len(orders))
	for _, o := range orders {
		x := gc.xOf(o.PlannedStart)
		// an order occupies its end day
		width := max(gc.xOf(o.PlannedEnd.AddDate(0, 0, 1))-x, 2)
		bars = append(bars, GanttBar{
			OrderID:   o.ID,
			ProductID: o.ProductID,
			OrderType: o.OrderType,
			Quantity:  o.Quantity.String(),
			Start:     o.PlannedStart,
			End:       o.PlannedEnd,
			Late:      o.IsLate,
			X:         x,
			Width:     width,
			Color:     barColor(o),
		})
	}
	return bars
}

// rows groups bars per product; products are ordered by their earliest start
func (gc *GanttChart) rows(bars []GanttBar) (map[entities.ProductID][]GanttBar, []entities.ProductID) {
	rows := make(map[entities.ProductID][]GanttBar)
	for _, bar := range bars {
		rows[bar.ProductID] = append(rows[bar.ProductID], bar)
	}
	products := make([]entities.ProductID, 0, len(rows))
	for product, list := range rows {
		sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool {
		a, b := rows[products[i]][0].Start, rows[products[j]][0].Start
		if a.Equal(b) {
			return products[i] < products[j]
		}
		return a.Before(b)
	})
	return rows, products
}

// drawBuckets draws one grid line per bucket boundary, labelling at most ~20
func (gc *GanttChart) drawBuckets(svg *strings.Builder, numRows int) {
	bottom := gc.MarginTop + numRows*gc.RowHeight
	step := gc.BucketDays
	days := entities.DaysBetween(gc.StartTime, gc.EndTime)
	labelEvery := max(days/step/20, 1)
	for i, t := 0, gc.StartTime; t.Before(gc.EndTime); i, t = i+1, t.AddDate(0, 0, step) {
		x := gc.xOf(t)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid"/>`, x, gc.MarginTop, x, bottom)
		if i%labelEvery == 0 {
			fmt.Fprintf(svg, `<text x="%d" y="%d" class="axis" text-anchor="middle">%s</text>`,
				x, bottom+15, t.Format("Jan 2"))
		}
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int) {
	h := gc.RowHeight - 6
	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="bar">`,
		bar.X, rowY+3, bar.Width, h, bar.Color)
	fmt.Fprintf(svg, `<title>%s %s qty %s, %s to %s</title></rect>`,
		html.EscapeString(string(bar.ProductID)), bar.OrderType, bar.Quantity,
		bar.Start.Format(time.DateOnly), bar.End.Format(time.DateOnly))
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	x, y := gc.Width-gc.MarginRight-300, 20
	items := []struct{ color, label string }{
		{makeColor, "Make"},
		{buyColor, "Buy"},
		{lateColor, "Late"},
	}
	for i, item := range items {
		fmt.Fprintf(svg, `<rect x="%d" y="%d" width="12" height="10" fill="%s"/>`, x+i*90, y, item.color)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="axis">%s</text>`, x+i*90+18, y+9, item.label)
	}
}

func barColor(o entities.PlannedOrder) string {
	if o.IsLate {
		return lateColor
	}
	switch o.OrderType {
	case entities.Make:
		return makeColor
	case entities.Buy:
		return buyColor
	default:
		return otherGray
	}
}

// generateGanttOutput writes the schedule chart to gantt.svg
func generateGanttOutput(result *dto.RunResult, config Config) error {
	path, err := outputPath(config, "gantt.svg")
	if err != nil {
		return err
	}
	svg := NewGanttChart(result).GenerateSVG(result)
	if err := writeFile(path, svg); err != nil {
		return fmt.Errorf("failed to write gantt chart: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.stdout(), "Results saved to: %s\n", path)
	}
	return nil
}
