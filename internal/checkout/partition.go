package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
)

// GeneralBucketKey groups cart lines that are not tied to a design project.
const GeneralBucketKey = "general"

// ProjectGroup is one per-project slice of a checkout. Tax is computed per
// group on the group subtotal, not prorated from an aggregate figure, so two
// groups never share a rounding remainder.
type ProjectGroup struct {
	ProjectID     *uuid.UUID
	Lines         []models.CartLine
	SubtotalCents int
	TaxCents      int
	TotalCents    int
}

// Key returns the stable bucket key for the group.
func (g ProjectGroup) Key() string {
	if g.ProjectID == nil {
		return GeneralBucketKey
	}
	return g.ProjectID.String()
}

// Partition splits cart lines into per-project groups. Groups appear in the
// order their project first appears in the input, and lines keep their input
// order within each group. taxRateBps is the tax rate in basis points.
func Partition(lines []models.CartLine, taxRateBps int) ([]ProjectGroup, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no lines to check out")
	}
	if taxRateBps < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
	}

	groupIndex := make(map[string]int, len(lines))
	groups := make([]ProjectGroup, 0, len(lines))

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line quantity must be at least 1").
				WithDetails(map[string]any{"line_id": line.ID})
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line price cannot be negative").
				WithDetails(map[string]any{"line_id": line.ID})
		}

		key := GeneralBucketKey
		if line.ProjectID != nil {
			key = line.ProjectID.String()
		}

		idx, ok := groupIndex[key]
		if !ok {
			idx = len(groups)
			groupIndex[key] = idx
			groups = append(groups, ProjectGroup{ProjectID: line.ProjectID})
		}

		groups[idx].Lines = append(groups[idx].Lines, line)
		groups[idx].SubtotalCents += line.Quantity * line.UnitPriceCents
	}

	for i := range groups {
		groups[i].TaxCents = taxCents(groups[i].SubtotalCents, taxRateBps)
		groups[i].TotalCents = groups[i].SubtotalCents + groups[i].TaxCents
	}

	return groups, nil
}

// taxCents rounds half away from zero on the minor unit.
func taxCents(subtotalCents, taxRateBps int) int {
	if subtotalCents == 0 || taxRateBps == 0 {
		return 0
	}
	rate := decimal.New(int64(taxRateBps), -4)
	return int(decimal.NewFromInt(int64(subtotalCents)).Mul(rate).Round(0).IntPart())
}

// AggregateTotal sums group totals into the single amount charged at the
// gateway. Group subtotals, taxes, and totals always sum to the aggregate
// because the aggregate is defined as this sum.
func AggregateTotal(groups []ProjectGroup) int {
	total := 0
	for _, g := range groups {
		total += g.TotalCents
	}
	return total
}
