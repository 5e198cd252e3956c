package pipeline

import (
	"strings"

	"github.com/triptomat/trip-analyzer/internal/model"
)

// SiteHierarchy builds the ordered ancestor chain for a named site as a
// comma-joined string, most specific first ("Jaffa, Tel Aviv, Israel").
// The walk follows parent pointers and stops when a parent is empty, not in
// the list, or already visited in this traversal. The visited guard makes
// the function terminate on cyclic parent graphs, emitting each node of the
// cycle exactly once. An empty site name yields an empty string.
func SiteHierarchy(siteName string, sites []model.SiteNode) string {
	var path []string
	visited := make(map[string]bool)

	current := siteName
	for current != "" && !visited[current] {
		visited[current] = true
		path = append(path, current)

		parent := ""
		for _, s := range sites {
			if s.Site == current {
				parent = s.ParentSite
				break
			}
		}
		current = parent
	}

	return strings.Join(path, ", ")
}
