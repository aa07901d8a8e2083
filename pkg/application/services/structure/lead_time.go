package structure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// CumulativeLeadTime returns the longest chain of lead times from the product
// down through the BOMs in effect on asOf. Components reached through a
// phantom line contribute without the phantom's own lead time.
func (r *Resolver) CumulativeLeadTime(ctx context.Context, productID entities.ProductID, asOf time.Time) (entities.LeadTimePath, error) {
	memo := make(map[entities.ProductID]entities.LeadTimePath)
	visiting := make(map[entities.ProductID]bool)
	return r.longestPath(ctx, productID, asOf, false, memo, visiting)
}

func (r *Resolver) longestPath(
	ctx context.Context,
	productID entities.ProductID,
	asOf time.Time,
	phantom bool,
	memo map[entities.ProductID]entities.LeadTimePath,
	visiting map[entities.ProductID]bool,
) (entities.LeadTimePath, error) {
	if p, ok := memo[productID]; ok && !phantom {
		return p, nil
	}
	if visiting[productID] {
		return entities.LeadTimePath{}, fmt.Errorf("%w: %s reached again while computing lead time", entities.ErrCycleDetected, productID)
	}
	visiting[productID] = true
	defer delete(visiting, productID)

	own, err := r.LeadTime(ctx, productID)
	if err != nil {
		return entities.LeadTimePath{}, err
	}
	if phantom {
		own = 0
	}

	var best entities.LeadTimePath
	bom, err := r.GetActiveBom(ctx, productID, asOf)
	switch {
	case err == nil:
		for _, line := range bom.LinesEffectiveOn(asOf) {
			child, err := r.longestPath(ctx, line.ComponentID, asOf, line.IsPhantom, memo, visiting)
			if err != nil {
				return entities.LeadTimePath{}, err
			}
			if child.TotalLeadTime > best.TotalLeadTime || best.Path == nil {
				best = child
			}
		}
	case errors.Is(err, ErrNoActiveStructure):
		// purchased or leaf item
	default:
		return entities.LeadTimePath{}, err
	}

	path := entities.LeadTimePath{
		Path:          append([]entities.ProductID{productID}, best.Path...),
		LeadTimes:     append([]int{own}, best.LeadTimes...),
		TotalLeadTime: own + best.TotalLeadTime,
		Bottleneck:    productID,
	}
	maxOwn := own
	for i, lt := range best.LeadTimes {
		if lt > maxOwn {
			maxOwn = lt
			path.Bottleneck = best.Path[i]
		}
	}
	if !phantom {
		memo[productID] = path
	}
	return path, nil
}
