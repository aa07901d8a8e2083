package output

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Report is the serializable view of a plan run shared by every file format
type Report struct {
	Plan          PlanView           `json:"plan" yaml:"plan"`
	PlannedOrders []OrderView        `json:"planned_orders" yaml:"planned_orders"`
	Requirements  []RequirementView  `json:"requirements" yaml:"requirements"`
	Capacity      []CapacityView     `json:"capacity" yaml:"capacity"`
	Exceptions    []ExceptionView    `json:"exceptions" yaml:"exceptions"`
	CriticalPaths []CriticalPathView `json:"critical_paths,omitempty" yaml:"critical_paths,omitempty"`
}

type PlanView struct {
	ID            string         `json:"id" yaml:"id"`
	Number        string         `json:"number" yaml:"number"`
	Type          string         `json:"type" yaml:"type"`
	Status        string         `json:"status" yaml:"status"`
	HorizonStart  string         `json:"horizon_start" yaml:"horizon_start"`
	HorizonEnd    string         `json:"horizon_end" yaml:"horizon_end"`
	BucketDays    int            `json:"bucket_days" yaml:"bucket_days"`
	CapacityMode  string         `json:"capacity_mode" yaml:"capacity_mode"`
	RunCount      int            `json:"run_count" yaml:"run_count"`
	FailureReason string         `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	Duration      string         `json:"duration" yaml:"duration"`
	Products      int            `json:"processed_products" yaml:"processed_products"`
	LateOrders    int            `json:"late_orders" yaml:"late_orders"`
	Overloaded    int            `json:"overloaded_buckets" yaml:"overloaded_buckets"`
	Unresolved    map[string]int `json:"unresolved_exceptions" yaml:"unresolved_exceptions"`
}

type OrderView struct {
	ID           string `json:"id" yaml:"id"`
	ProductID    string `json:"product_id" yaml:"product_id"`
	OrderType    string `json:"order_type" yaml:"order_type"`
	Quantity     string `json:"quantity" yaml:"quantity"`
	Start        string `json:"start" yaml:"start"`
	End          string `json:"end" yaml:"end"`
	Status       string `json:"status" yaml:"status"`
	LowLevelCode int    `json:"low_level_code" yaml:"low_level_code"`
	Late         bool   `json:"late" yaml:"late"`
	Trace        string `json:"trace,omitempty" yaml:"trace,omitempty"`
}

type RequirementView struct {
	ProductID       string `json:"product_id" yaml:"product_id"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	LowLevelCode    int    `json:"low_level_code" yaml:"low_level_code"`
	Gross           string `json:"gross" yaml:"gross"`
	Receipts        string `json:"scheduled_receipts" yaml:"scheduled_receipts"`
	OnHand          string `json:"on_hand" yaml:"on_hand"`
	SafetyStock     string `json:"safety_stock" yaml:"safety_stock"`
	Net             string `json:"net" yaml:"net"`
	PlannedReceipt  string `json:"planned_receipt" yaml:"planned_receipt"`
	PlannedRelease  string `json:"planned_release" yaml:"planned_release"`
	ProjectedOnHand string `json:"projected_on_hand" yaml:"projected_on_hand"`
}

type CapacityView struct {
	WorkCenterID string `json:"work_center_id" yaml:"work_center_id"`
	Bucket       string `json:"bucket" yaml:"bucket"`
	Available    string `json:"available_hours" yaml:"available_hours"`
	Required     string `json:"required_hours" yaml:"required_hours"`
	LoadPercent  string `json:"load_percent" yaml:"load_percent"`
	Over         string `json:"over_hours" yaml:"over_hours"`
	Status       string `json:"status" yaml:"status"`
	ShiftedOut   string `json:"shifted_out" yaml:"shifted_out"`
	ShiftedTo    string `json:"shifted_to,omitempty" yaml:"shifted_to,omitempty"`
}

type ExceptionView struct {
	ID              string `json:"id" yaml:"id"`
	Type            string `json:"type" yaml:"type"`
	Severity        string `json:"severity" yaml:"severity"`
	ProductID       string `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	WorkCenterID    string `json:"work_center_id,omitempty" yaml:"work_center_id,omitempty"`
	Message         string `json:"message" yaml:"message"`
	SuggestedAction string `json:"suggested_action,omitempty" yaml:"suggested_action,omitempty"`
	Resolved        bool   `json:"resolved" yaml:"resolved"`
}

type CriticalPathView struct {
	ProductID     string `json:"product_id" yaml:"product_id"`
	Path          string `json:"path" yaml:"path"`
	TotalLeadTime int    `json:"total_lead_time_days" yaml:"total_lead_time_days"`
	Bottleneck    string `json:"bottleneck" yaml:"bottleneck"`
}

// NewReport flattens a run result into its printable view
func NewReport(result *dto.RunResult) *Report {
	p := result.Plan
	r := &Report{
		Plan: PlanView{
			ID:            string(p.ID),
			Number:        p.Number,
			Type:          p.Type.String(),
			Status:        p.Status.String(),
			HorizonStart:  day(p.Horizon.Start),
			HorizonEnd:    day(p.Horizon.End),
			BucketDays:    p.Horizon.BucketDays,
			CapacityMode:  p.Capacity.Mode.String(),
			RunCount:      p.RunCount,
			FailureReason: p.FailureReason,
			Duration:      result.Duration.Round(time.Millisecond).String(),
			Unresolved:    map[string]int{},
		},
		PlannedOrders: make([]OrderView, 0, len(result.Outputs.PlannedOrders)),
		Requirements:  make([]RequirementView, 0, len(result.Outputs.Requirements)),
		Capacity:      make([]CapacityView, 0, len(result.Outputs.CapacityRequirements)),
		Exceptions:    make([]ExceptionView, 0, len(result.Outputs.Exceptions)),
	}
	if s := p.Summary; s != nil {
		r.Plan.Products = s.ProcessedProducts
		r.Plan.LateOrders = s.LateOrders
		r.Plan.Overloaded = s.OverloadedBuckets
		for sev, n := range s.UnresolvedBySeverity {
			r.Plan.Unresolved[sev.String()] = n
		}
	}

	for _, o := range result.Outputs.PlannedOrders {
		r.PlannedOrders = append(r.PlannedOrders, OrderView{
			ID:           o.ID,
			ProductID:    string(o.ProductID),
			OrderType:    o.OrderType.String(),
			Quantity:     o.Quantity.String(),
			Start:        day(o.PlannedStart),
			End:          day(o.PlannedEnd),
			Status:       o.Status.String(),
			LowLevelCode: o.LowLevelCode,
			Late:         o.IsLate,
			Trace:        o.DemandTrace,
		})
	}
	for _, q := range result.Outputs.Requirements {
		if q.IsIdle() {
			continue
		}
		r.Requirements = append(r.Requirements, RequirementView{
			ProductID:       string(q.ProductID),
			Bucket:          day(q.BucketDate),
			LowLevelCode:    q.LowLevelCode,
			Gross:           q.Gross.String(),
			Receipts:        q.ScheduledReceipts.String(),
			OnHand:          q.OnHand.String(),
			SafetyStock:     q.SafetyStock.String(),
			Net:             q.Net.String(),
			PlannedReceipt:  q.PlannedReceipt.String(),
			PlannedRelease:  q.PlannedRelease.String(),
			ProjectedOnHand: q.ProjectedOnHand.String(),
		})
	}
	for _, c := range result.Outputs.CapacityRequirements {
		v := CapacityView{
			WorkCenterID: string(c.WorkCenterID),
			Bucket:       day(c.BucketDate),
			Available:    hours(c.AvailableHours),
			Required:     hours(c.RequiredHours),
			LoadPercent:  hours(c.LoadPercent),
			Over:         hours(c.OverCapacity),
			Status:       c.Status.String(),
			ShiftedOut:   hours(c.ShiftedOut),
		}
		if c.ShiftedTo != nil {
			v.ShiftedTo = day(*c.ShiftedTo)
		}
		r.Capacity = append(r.Capacity, v)
	}
	for _, e := range result.Outputs.Exceptions {
		r.Exceptions = append(r.Exceptions, ExceptionView{
			ID:              e.ID,
			Type:            e.Type.String(),
			Severity:        e.Severity.String(),
			ProductID:       string(e.ProductID),
			WorkCenterID:    string(e.WorkCenterID),
			Message:         e.Message,
			SuggestedAction: e.SuggestedAction,
			Resolved:        e.IsResolved,
		})
	}
	sort.SliceStable(r.Exceptions, func(i, j int) bool {
		return severityRank[r.Exceptions[i].Severity] > severityRank[r.Exceptions[j].Severity]
	})

	products := make([]entities.ProductID, 0, len(result.CriticalPaths))
	for id := range result.CriticalPaths {
		products = append(products, id)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	for _, id := range products {
		path := result.CriticalPaths[id]
		r.CriticalPaths = append(r.CriticalPaths, CriticalPathView{
			ProductID:     string(id),
			Path:          path.String(),
			TotalLeadTime: path.TotalLeadTime,
			Bottleneck:    string(path.Bottleneck),
		})
	}
	return r
}

var severityRank = func() map[string]int {
	m := make(map[string]int)
	for i, s := range entities.Severities() {
		m[s.String()] = i
	}
	return m
}()

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2)
}
