package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/application/services/planning"
	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/config"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/events"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/metrics"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/sqlite"
)

// App carries what every subcommand shares once flags are parsed
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Clock  shared.Clock
	out    io.Writer
}

// engine is one planning service wired to a loaded scenario
type engine struct {
	app      *App
	scenario *csv.Scenario
	plans    repositories.PlanRepository
	service  *planning.Service
	metrics  *metrics.Collector
	close    func() error
}

func (a *App) openEngine(scenarioDir string) (*engine, error) {
	scenario, err := csv.NewLoader().LoadScenario(scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	repos, err := scenario.Populate()
	if err != nil {
		return nil, err
	}

	e := &engine{app: a, scenario: scenario, metrics: metrics.NewCollector(), close: func() error { return nil }}
	if path := a.Config.StoragePath; path != "" {
		store, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("open plan store: %w", err)
		}
		e.plans, e.close = store, store.Close
	} else {
		e.plans = memory.NewPlanRepository()
	}

	store := events.NewInMemoryEventStore(a.Logger)
	if err := store.Subscribe(events.AllEvents(), events.LogHandler{Logger: a.Logger.Named("events")}); err != nil {
		return nil, err
	}

	e.service = planning.NewService(planning.Dependencies{
		Items:       repos.Items,
		Structures:  repos.Structures,
		Inventory:   repos.Inventory,
		Demand:      repos.Demand,
		WorkCenters: repos.WorkCenters,
		Plans:       e.plans,
		Events:      store,
		Observer:    e.metrics,
		Clock:       a.Clock,
		Logger:      a.Logger,
	}, planning.Config{
		Workers:  a.Config.Workers,
		Deadline: a.Config.Deadline,
	})
	return e, nil
}

type runOptions struct {
	Start time.Time
	CRP   bool
}

// plan runs an MRP plan and, when asked and the MRP plan completed, a CRP
// plan loading its orders. Metrics are exported after the runs.
func (e *engine) plan(ctx context.Context, opts runOptions) ([]*dto.RunResult, error) {
	cfg := e.app.Config
	horizon, err := cfg.Horizon(opts.Start)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.PlanningPolicy()
	if err != nil {
		return nil, err
	}
	capacity, err := cfg.CapacityPolicy()
	if err != nil {
		return nil, err
	}

	stamp := e.app.Clock.Now().Format("20060102-150405")
	mrpPlan, err := e.service.CreatePlan(ctx, planning.CreatePlanRequest{
		Number:   "MRP-" + stamp,
		Type:     entities.MRPPlan,
		Horizon:  horizon,
		Policy:   policy,
		Capacity: capacity,
	})
	if err != nil {
		return nil, err
	}
	mrpResult, err := e.service.RunPlan(ctx, mrpPlan.ID)
	if err != nil {
		return nil, err
	}
	results := []*dto.RunResult{mrpResult}

	if opts.CRP && mrpResult.Plan.Status == entities.PlanCompleted {
		crpPlan, err := e.service.CreatePlan(ctx, planning.CreatePlanRequest{
			Number:       "CRP-" + stamp,
			Type:         entities.CRPPlan,
			Horizon:      horizon,
			Policy:       policy,
			Capacity:     capacity,
			SourcePlanID: mrpPlan.ID,
		})
		if err != nil {
			return results, err
		}
		crpResult, err := e.service.RunPlan(ctx, crpPlan.ID)
		if err != nil {
			return results, err
		}
		results = append(results, crpResult)
	}

	if path := cfg.MetricsPath; path != "" {
		if err := e.metrics.WriteToTextfile(path); err != nil {
			e.app.Logger.Warn("metrics export failed", zap.String("path", path), zap.Error(err))
		}
	}
	return results, nil
}
