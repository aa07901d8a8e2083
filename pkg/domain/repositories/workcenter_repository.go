package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// WorkCenterRepository provides access to work centers and their calendars
type WorkCenterRepository interface {
	GetWorkCenter(ctx context.Context, id entities.WorkCenterID) (*entities.WorkCenter, error)
	ListWorkCenters(ctx context.Context) ([]entities.WorkCenter, error)
	// GetWorkCenterCalendar returns the calendar hours of a single day before efficiency
	GetWorkCenterCalendar(ctx context.Context, id entities.WorkCenterID, date time.Time) (decimal.Decimal, error)
}
