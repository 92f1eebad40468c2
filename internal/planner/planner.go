package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/ubc/tlef-create-sub004/internal/models"
)

// PlanningError means the requested distribution cannot satisfy its
// constraints. It is surfaced before any generation starts and is not
// retried.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return "planning error: " + e.Reason
}

func planErrf(format string, args ...any) error {
	return &PlanningError{Reason: fmt.Sprintf(format, args...)}
}

// Formula is the planning input: an ordered set of allowed types with
// qualitative ratios and optional per-objective caps. Templates and
// custom formulas both reduce to this.
type Formula struct {
	Name  string
	Types []models.QuestionType
	// Ratios need not sum to 1; they are normalized by their sum. A type
	// missing from the map has ratio 0 (it only receives cap spillover).
	Ratios map[models.QuestionType]float64
	// Caps are hard per-(objective,type) ceilings. Absent means unlimited.
	Caps map[models.QuestionType]int
}

func FormulaFromTemplate(t *models.ApproachTemplate) Formula {
	return Formula{
		Name:   t.ApproachID,
		Types:  append([]models.QuestionType{}, t.AllowedTypes...),
		Ratios: t.TargetRatios,
		Caps:   t.MaxPerObjective,
	}
}

func FormulaFromCustom(c *models.CustomFormula) Formula {
	return Formula{
		Name:   "custom",
		Types:  append([]models.QuestionType{}, c.Types...),
		Ratios: c.Ratios,
		Caps:   c.Caps,
	}
}

// Plan computes an exact integer breakdown of question counts per
// (objective, type) cell. Postconditions: the grand total equals
// totalQuestions, no count is negative, no cell exceeds its cap, and
// every objective receives at least one question. Identical inputs
// always yield an identical breakdown.
func Plan(objectives []models.LearningObjective, totalQuestions int, f Formula) (models.Breakdown, error) {
	if err := validate(objectives, totalQuestions, f); err != nil {
		return nil, err
	}

	n := len(objectives)

	// grid[i][j]: count for objective i, type f.Types[j]
	targets := typeTargets(totalQuestions, f)
	grid := make([][]int, n)
	for i := range grid {
		grid[i] = make([]int, len(f.Types))
	}
	for j := range f.Types {
		counts := splitEven(targets[j], n)
		for i := 0; i < n; i++ {
			grid[i][j] = counts[i]
		}
	}

	if err := enforceCaps(grid, f); err != nil {
		return nil, err
	}
	if err := ensureEveryObjective(grid, f); err != nil {
		return nil, err
	}

	if err := checkPostconditions(grid, totalQuestions, f); err != nil {
		return nil, err
	}

	return buildBreakdown(objectives, grid, f), nil
}

func validate(objectives []models.LearningObjective, total int, f Formula) error {
	if len(objectives) == 0 {
		return planErrf("no learning objectives to plan for")
	}
	if total < 1 {
		return planErrf("total questions must be at least 1, got %d", total)
	}
	if total < len(objectives) {
		return planErrf("cannot give every objective at least one question: %d questions for %d objectives",
			total, len(objectives))
	}
	if len(f.Types) == 0 {
		return planErrf("formula allows no question types")
	}

	seen := make(map[models.QuestionType]bool, len(f.Types))
	for _, t := range f.Types {
		if !models.ValidQuestionTypes[t] {
			return planErrf("unknown question type %q", t)
		}
		if seen[t] {
			return planErrf("duplicate question type %q in formula", t)
		}
		seen[t] = true
		if r, ok := f.Ratios[t]; ok && r < 0 {
			return planErrf("negative ratio %.2f for type %q", r, t)
		}
		if c, ok := f.Caps[t]; ok && c < 0 {
			return planErrf("negative cap %d for type %q", c, t)
		}
	}

	// Aggregate capacity check: with every type capped, the grid may not
	// be able to hold the requested total at all.
	capacity := 0
	unlimited := false
	for _, t := range f.Types {
		c, capped := f.Caps[t]
		if !capped {
			unlimited = true
			break
		}
		capacity += c * len(objectives)
	}
	if !unlimited && capacity < total {
		return planErrf("per-objective caps allow at most %d questions, %d requested", capacity, total)
	}

	return nil
}

// typeTargets apportions the total across types by largest remainder:
// floor every normalized share, then hand the leftover units to the
// largest fractional parts. Equal remainders break ties toward the
// lexicographically smaller type name.
func typeTargets(total int, f Formula) []int {
	if len(f.Types) == 1 {
		return []int{total}
	}

	ratioSum := 0.0
	for _, t := range f.Types {
		ratioSum += f.Ratios[t]
	}

	targets := make([]int, len(f.Types))
	remainders := make([]float64, len(f.Types))
	assigned := 0
	for j, t := range f.Types {
		share := 0.0
		if ratioSum > 0 {
			share = float64(total) * f.Ratios[t] / ratioSum
		} else {
			// No ratios given: split evenly.
			share = float64(total) / float64(len(f.Types))
		}
		targets[j] = int(math.Floor(share))
		remainders[j] = share - math.Floor(share)
		assigned += targets[j]
	}

	order := make([]int, len(f.Types))
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		ja, jb := order[a], order[b]
		if remainders[ja] != remainders[jb] {
			return remainders[ja] > remainders[jb]
		}
		return f.Types[ja] < f.Types[jb]
	})

	for k := 0; assigned < total; k++ {
		targets[order[k%len(order)]]++
		assigned++
	}
	return targets
}

// splitEven distributes total across k slots: floor each, remainder to
// the first slots in order.
func splitEven(total, k int) []int {
	counts := make([]int, k)
	base := total / k
	rem := total % k
	for i := 0; i < k; i++ {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// enforceCaps clips every capped cell to its ceiling and redistributes
// the excess: round-robin across objectives with headroom for the same
// type first, then spilling into the other allowed types in formula
// order.
func enforceCaps(grid [][]int, f Formula) error {
	n := len(grid)

	for j, t := range f.Types {
		cap, capped := f.Caps[t]
		if !capped {
			continue
		}

		excess := 0
		for i := 0; i < n; i++ {
			if grid[i][j] > cap {
				excess += grid[i][j] - cap
				grid[i][j] = cap
			}
		}

		// Same type, other objectives, one unit per sweep.
		for excess > 0 {
			placed := false
			for i := 0; i < n && excess > 0; i++ {
				if grid[i][j] < cap {
					grid[i][j]++
					excess--
					placed = true
				}
			}
			if !placed {
				break
			}
		}

		// Spill into other allowed types.
		for excess > 0 {
			placed := false
			for j2, t2 := range f.Types {
				if j2 == j {
					continue
				}
				cap2, capped2 := f.Caps[t2]
				for i := 0; i < n && excess > 0; i++ {
					if !capped2 || grid[i][j2] < cap2 {
						grid[i][j2]++
						excess--
						placed = true
					}
				}
			}
			if !placed {
				return planErrf("caps leave no room for %d excess %s question(s)", excess, t)
			}
		}
	}
	return nil
}

// ensureEveryObjective guarantees each objective at least one question by
// stealing a unit from the largest current cell of an objective that
// keeps at least one.
func ensureEveryObjective(grid [][]int, f Formula) error {
	n := len(grid)

	rowTotal := func(i int) int {
		sum := 0
		for j := range grid[i] {
			sum += grid[i][j]
		}
		return sum
	}

	for i := 0; i < n; i++ {
		if rowTotal(i) > 0 {
			continue
		}

		// Donor: largest cell anywhere, earliest objective then formula
		// order on ties, whose objective keeps >= 1 after the steal.
		donorI, donorJ, donorCount := -1, -1, 0
		for i2 := 0; i2 < n; i2++ {
			if i2 == i || rowTotal(i2) < 2 {
				continue
			}
			for j2 := range f.Types {
				if grid[i2][j2] > donorCount {
					donorI, donorJ, donorCount = i2, j2, grid[i2][j2]
				}
			}
		}
		if donorI < 0 {
			return planErrf("no objective can spare a question for objective %d", i+1)
		}

		// Receive as the donor's type when this objective has headroom
		// for it, otherwise the first allowed type with headroom.
		recvJ := -1
		if hasHeadroom(grid, f, i, donorJ) {
			recvJ = donorJ
		} else {
			for j := range f.Types {
				if hasHeadroom(grid, f, i, j) {
					recvJ = j
					break
				}
			}
		}
		if recvJ < 0 {
			return planErrf("caps leave objective %d unable to receive any question", i+1)
		}

		grid[donorI][donorJ]--
		grid[i][recvJ]++
	}
	return nil
}

func hasHeadroom(grid [][]int, f Formula, i, j int) bool {
	cap, capped := f.Caps[f.Types[j]]
	return !capped || grid[i][j] < cap
}

func checkPostconditions(grid [][]int, total int, f Formula) error {
	sum := 0
	for i := range grid {
		row := 0
		for j := range grid[i] {
			if grid[i][j] < 0 {
				return planErrf("internal: negative count for objective %d", i+1)
			}
			if cap, capped := f.Caps[f.Types[j]]; capped && grid[i][j] > cap {
				return planErrf("internal: objective %d exceeds %s cap", i+1, f.Types[j])
			}
			row += grid[i][j]
		}
		if row == 0 {
			return planErrf("internal: objective %d received no questions", i+1)
		}
		sum += row
	}
	if sum != total {
		return planErrf("internal: breakdown sums to %d, expected %d", sum, total)
	}
	return nil
}

func buildBreakdown(objectives []models.LearningObjective, grid [][]int, f Formula) models.Breakdown {
	typeTotals := make([]int, len(f.Types))
	for i := range grid {
		for j := range f.Types {
			typeTotals[j] += grid[i][j]
		}
	}

	breakdown := make(models.Breakdown, 0, len(objectives))
	for i, obj := range objectives {
		var cells []models.TypeCount
		for j, t := range f.Types {
			if grid[i][j] == 0 {
				continue
			}
			cells = append(cells, models.TypeCount{
				Type:  t,
				Count: grid[i][j],
				Reasoning: fmt.Sprintf("%s: %d of %d %s question(s), split across %d objective(s)",
					f.Name, grid[i][j], typeTotals[j], t, len(objectives)),
			})
		}
		breakdown = append(breakdown, models.ObjectiveBreakdown{
			ObjectiveID: obj.ID,
			TypeCounts:  cells,
		})
	}
	return breakdown
}
