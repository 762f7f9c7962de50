package search

// Filter decides whether a dequeued node is expanded. rootScore and
// rootWhite describe the position the search was started from; score is the
// candidate's static score.
type Filter func(rootScore, score float64, rootWhite bool) bool

// BaselineFilter expands only nodes whose static score is at least as good
// as the root's for the side to move at the root. It is a heuristic prune:
// lines that recover material only after further moves are never explored.
func BaselineFilter(rootScore, score float64, rootWhite bool) bool {
	if rootWhite {
		return score >= rootScore
	}
	return score <= rootScore
}

// NoFilter expands everything.
func NoFilter(_, _ float64, _ bool) bool { return true }
