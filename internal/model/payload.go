// Package model defines the domain types shared across the analysis pipeline.
package model

// Sentiment captures whether a place was recommended or warned against.
type Sentiment string

const (
	SentimentGood Sentiment = "good"
	SentimentBad  Sentiment = "bad"
)

// LocationType distinguishes concrete addressable places from abstract
// areas or categories ("beaches", "nightlife") that have no single address.
type LocationType string

const (
	LocationSpecific LocationType = "specific"
	LocationGeneral  LocationType = "general"
)

// ContactRole classifies an extracted contact.
type ContactRole string

const (
	RoleGuide      ContactRole = "guide"
	RoleHost       ContactRole = "host"
	RoleRental     ContactRole = "rental"
	RoleRestaurant ContactRole = "restaurant"
	RoleDriver     ContactRole = "driver"
	RoleAgency     ContactRole = "agency"
	RoleOther      ContactRole = "other"
)

// Coordinates is a WGS84 lat/lng pair. The zero value means "unknown".
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a resolved place. The zero value is the documented safe
// default returned when geocoding fails or is not applicable.
type Location struct {
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
}

// Recommendation is one extracted place or activity.
type Recommendation struct {
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	Sentiment    Sentiment    `json:"sentiment"`
	Paragraph    string       `json:"paragraph"`
	Site         string       `json:"site"`
	LocationType LocationType `json:"location_type"`
	Location     Location     `json:"location"`
}

// Contact is a person or service provider mentioned by name. Contacts are
// never geocoded.
type Contact struct {
	Name      string      `json:"name"`
	Role      ContactRole `json:"role"`
	Phone     string      `json:"phone,omitempty"`
	Email     string      `json:"email,omitempty"`
	Website   string      `json:"website,omitempty"`
	Paragraph string      `json:"paragraph"`
	Site      string      `json:"site"`
}

// SiteNode is one entry in the flat site list derived from the model's
// hierarchy extraction. ParentSite is empty for roots. Nodes form a forest;
// the ancestor chain of a site follows ParentSite until empty, unknown, or
// a node repeats (cycle).
type SiteNode struct {
	Site       string `json:"site"`
	ParentSite string `json:"parent_site,omitempty"`
}

// HierarchyNode is one node of the nested geographical tree.
type HierarchyNode struct {
	Site     string          `json:"site"`
	SiteType string          `json:"site_type"`
	SubSites []HierarchyNode `json:"sub_sites"`
}

// AnalysisPayload is the unit passed between pipeline stages. It is owned by
// a single job run and never shared across jobs.
type AnalysisPayload struct {
	SitesHierarchy  []HierarchyNode  `json:"sites_hierarchy"`
	Recommendations []Recommendation `json:"recommendations"`
	Contacts        []Contact        `json:"contacts"`
	SitesList       []SiteNode       `json:"sites_list"`
}

// FlattenSites derives the flat parent-pointer list from the nested
// hierarchy. Models that emit only the tree still get a usable SitesList
// for enrichment. A pre-populated SitesList is left alone.
func (p *AnalysisPayload) FlattenSites() {
	if len(p.SitesList) > 0 {
		return
	}
	var walk func(nodes []HierarchyNode, parent string)
	walk = func(nodes []HierarchyNode, parent string) {
		for _, n := range nodes {
			p.SitesList = append(p.SitesList, SiteNode{Site: n.Site, ParentSite: parent})
			walk(n.SubSites, n.Site)
		}
	}
	walk(p.SitesHierarchy, "")
}
