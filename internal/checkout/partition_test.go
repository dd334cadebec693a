package checkout

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
)

func line(projectID *uuid.UUID, qty, unitPrice int) models.CartLine {
	return models.CartLine{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		ProjectID:      projectID,
		Quantity:       qty,
		UnitPriceCents: unitPrice,
	}
}

func TestPartitionGroupsByProject(t *testing.T) {
	living := uuid.New()
	office := uuid.New()

	lines := []models.CartLine{
		line(&living, 2, 5000),
		line(nil, 1, 1500),
		line(&office, 1, 8000),
		line(&living, 1, 2500),
	}

	groups, err := Partition(lines, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// Groups keep first-appearance order.
	if groups[0].Key() != living.String() {
		t.Errorf("group 0: expected %s, got %s", living, groups[0].Key())
	}
	if groups[1].Key() != GeneralBucketKey {
		t.Errorf("group 1: expected general bucket, got %s", groups[1].Key())
	}
	if groups[2].Key() != office.String() {
		t.Errorf("group 2: expected %s, got %s", office, groups[2].Key())
	}

	if groups[0].SubtotalCents != 12500 {
		t.Errorf("living subtotal: expected 12500, got %d", groups[0].SubtotalCents)
	}
	if groups[1].SubtotalCents != 1500 {
		t.Errorf("general subtotal: expected 1500, got %d", groups[1].SubtotalCents)
	}
	if groups[2].SubtotalCents != 8000 {
		t.Errorf("office subtotal: expected 8000, got %d", groups[2].SubtotalCents)
	}
	if len(groups[0].Lines) != 2 {
		t.Errorf("living group should carry 2 lines, got %d", len(groups[0].Lines))
	}
}

func TestPartitionSingleProjectYieldsOneGroup(t *testing.T) {
	project := uuid.New()
	lines := []models.CartLine{
		line(&project, 1, 3000),
		line(&project, 2, 1000),
	}

	groups, err := Partition(lines, 800)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].SubtotalCents != 5000 {
		t.Errorf("subtotal: expected 5000, got %d", groups[0].SubtotalCents)
	}
	if groups[0].TaxCents != 400 {
		t.Errorf("tax at 8%%: expected 400, got %d", groups[0].TaxCents)
	}
	if groups[0].TotalCents != 5400 {
		t.Errorf("total: expected 5400, got %d", groups[0].TotalCents)
	}
}

func TestPartitionTaxRoundsHalfAwayFromZero(t *testing.T) {
	lines := []models.CartLine{line(nil, 1, 1000)}

	// 1000 * 1.25% = 12.5, rounds to 13.
	groups, err := Partition(lines, 125)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if groups[0].TaxCents != 13 {
		t.Errorf("expected 13 tax cents, got %d", groups[0].TaxCents)
	}
}

func TestPartitionTaxIsIndependentPerGroup(t *testing.T) {
	projectA := uuid.New()
	projectB := uuid.New()

	// Each subtotal of 7 at 7.25% gives 0.5075, rounding up to 1 per group.
	// Taxing the 14-cent aggregate would give 1; per-group taxing gives 2.
	lines := []models.CartLine{
		line(&projectA, 1, 7),
		line(&projectB, 1, 7),
	}

	groups, err := Partition(lines, 725)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if groups[0].TaxCents != 1 || groups[1].TaxCents != 1 {
		t.Errorf("expected 1 tax cent per group, got %d and %d", groups[0].TaxCents, groups[1].TaxCents)
	}
	if AggregateTotal(groups) != 16 {
		t.Errorf("expected aggregate 16, got %d", AggregateTotal(groups))
	}
}

func TestPartitionConservesLinesAndAmounts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	projects := []*uuid.UUID{nil}
	for i := 0; i < 4; i++ {
		id := uuid.New()
		projects = append(projects, &id)
	}

	for iter := 0; iter < 50; iter++ {
		count := 1 + rng.Intn(20)
		lines := make([]models.CartLine, 0, count)
		cartSubtotal := 0
		for i := 0; i < count; i++ {
			l := line(projects[rng.Intn(len(projects))], 1+rng.Intn(5), rng.Intn(10000))
			lines = append(lines, l)
			cartSubtotal += l.Quantity * l.UnitPriceCents
		}

		groups, err := Partition(lines, 875)
		if err != nil {
			t.Fatalf("iter %d: unexpected error: %v", iter, err)
		}

		seen := make(map[uuid.UUID]bool)
		groupSubtotal := 0
		groupTotals := 0
		for _, g := range groups {
			groupSubtotal += g.SubtotalCents
			groupTotals += g.TotalCents
			if g.SubtotalCents+g.TaxCents != g.TotalCents {
				t.Fatalf("iter %d: group total mismatch", iter)
			}
			for _, l := range g.Lines {
				if seen[l.ID] {
					t.Fatalf("iter %d: line %s appears in more than one group", iter, l.ID)
				}
				seen[l.ID] = true
				key := GeneralBucketKey
				if l.ProjectID != nil {
					key = l.ProjectID.String()
				}
				if key != g.Key() {
					t.Fatalf("iter %d: line %s landed in group %s", iter, key, g.Key())
				}
			}
		}

		if len(seen) != count {
			t.Fatalf("iter %d: expected %d lines across groups, got %d", iter, count, len(seen))
		}
		if groupSubtotal != cartSubtotal {
			t.Fatalf("iter %d: group subtotals %d do not sum to cart subtotal %d", iter, groupSubtotal, cartSubtotal)
		}
		if groupTotals != AggregateTotal(groups) {
			t.Fatalf("iter %d: aggregate mismatch", iter)
		}
	}
}

func TestPartitionRejectsEmptyCart(t *testing.T) {
	_, err := Partition(nil, 800)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPartitionRejectsInvalidLines(t *testing.T) {
	cases := map[string][]models.CartLine{
		"zero quantity":  {line(nil, 0, 100)},
		"negative price": {line(nil, 1, -5)},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Partition(lines, 800); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
