package forecast

import (
	"github.com/avolkov/pmo-budget/internal/deviation"
	"github.com/avolkov/pmo-budget/internal/domain"
)

// Summary is the per-project rollup shown on the financial summary view and
// fed into the generated deviation commentary.
type Summary struct {
	ProjectID        string
	Budget           float64
	Committed        float64
	Realized         float64
	CommittedPercent float64
	RealizedPercent  float64
	VsInitialPercent float64 // current budget vs. the first baseline's budget
	Tier             deviation.Tier
}

// BuildSummary computes the rollup for a project. initialBudget is the first
// baseline's budget; zero (no baseline yet) suppresses the vs-initial figure.
func BuildSummary(project *domain.Project, initialBudget float64) Summary {
	s := Summary{
		ProjectID: project.ID,
		Budget:    project.Budget,
		Committed: project.Committed,
		Realized:  project.Realized,
	}
	if project.Budget > 0 {
		s.CommittedPercent = project.Committed / project.Budget * 100
		s.RealizedPercent = project.Realized / project.Budget * 100
	}
	if initialBudget > 0 {
		s.VsInitialPercent = (project.Budget - initialBudget) / initialBudget * 100
	}
	s.Tier = deviation.Classify(project.Budget, project.Realized).Tier
	return s
}
