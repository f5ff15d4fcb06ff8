// Package advisor routes classified queries to the conversational handler
// owning each supported category and runs the tool-calling answer loop.
package advisor

// Category is a closed set of supported query categories. The labels are
// exactly what the classifier is instructed to emit.
type Category string

const (
	CategoryPortfolioAnalysis    Category = "Portfolio Analysis"
	CategoryPortfolioRebalancing Category = "Portfolio Re-balancing"
	CategoryGoalPlanning         Category = "Goal Planning"
)

// Categories returns every supported top-level label in the order the
// classifier prompt presents them.
func Categories() []string {
	return []string{
		string(CategoryPortfolioAnalysis),
		string(CategoryPortfolioRebalancing),
		string(CategoryGoalPlanning),
	}
}
