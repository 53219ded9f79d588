package model

// ContributorStats is a per-author rollup of commit activity over a selected
// repository set and time window. It is computed fresh on every aggregation
// request and never persisted.
type ContributorStats struct {
	Author       string `json:"author"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	LinesChanged int    `json:"lines_changed"`
	Commits      int    `json:"commits"`
	Activity     int    `json:"activity"`
}
