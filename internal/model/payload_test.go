package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenSites(t *testing.T) {
	p := &AnalysisPayload{
		SitesHierarchy: []HierarchyNode{
			{Site: "Thailand", SiteType: "country", SubSites: []HierarchyNode{
				{Site: "Bangkok", SiteType: "city"},
				{Site: "Krabi", SiteType: "region", SubSites: []HierarchyNode{
					{Site: "Railay", SiteType: "beach"},
				}},
			}},
			{Site: "Laos", SiteType: "country"},
		},
	}

	p.FlattenSites()

	assert.Equal(t, []SiteNode{
		{Site: "Thailand"},
		{Site: "Bangkok", ParentSite: "Thailand"},
		{Site: "Krabi", ParentSite: "Thailand"},
		{Site: "Railay", ParentSite: "Krabi"},
		{Site: "Laos"},
	}, p.SitesList)
}

func TestFlattenSites_ExistingListUntouched(t *testing.T) {
	existing := []SiteNode{{Site: "Custom"}}
	p := &AnalysisPayload{
		SitesHierarchy: []HierarchyNode{{Site: "Thailand"}},
		SitesList:      existing,
	}

	p.FlattenSites()

	assert.Equal(t, existing, p.SitesList)
}

func TestFlattenSites_EmptyHierarchy(t *testing.T) {
	p := &AnalysisPayload{}
	p.FlattenSites()
	assert.Empty(t, p.SitesList)
}
