package pipeline

import (
	"fmt"
	"strings"

	"github.com/triptomat/trip-analyzer/internal/config"
)

const analysisPromptTemplate = `Extract the travel recommendations from the input you got.
Your output must be a RFC8259 compliant JSON object with the following structure:

{
    "sites_hierarchy": [
        {"site": "Country Name", "site_type": "country", "sub_sites": [
            {"site": "City/Region Name", "site_type": "city", "sub_sites": []}
        ]}
    ],
    "recommendations": [
        {
            "name": "Name of the specific place or attraction",
            "category": "Must be one of the allowed types listed below",
            "sentiment": "good | bad",
            "paragraph": "The exact quote describing this place",
            "site": "The location/neighborhood/city from the site list",
            "location_type": "specific | general",
            "location": {"address": "string", "coordinates": {"lat": 0, "lng": 0}}
        }
    ],
    "contacts": [
        {
            "name": "Name of the person or business",
            "role": "guide | host | rental | restaurant | driver | agency | other",
            "phone": "phone number if mentioned, else null",
            "email": "email if mentioned, else null",
            "website": "website or social link if mentioned, else null",
            "paragraph": "The exact quote mentioning this contact",
            "site": "The location/city"
        }
    ]
}

Rules:
1. Category must be strictly from: %s.
2. The sites_hierarchy is a nested geographical tree, country first, and its
   node types must be strictly from: %s. It must follow a logical path
   (Country -> State/Region -> City -> Neighborhood/POI), contain only the
   sites of the recommendations, and use English names.
3. Set "location_type" to "specific" for a concrete business, hotel,
   restaurant, or landmark, and "general" for abstract areas ("beaches",
   "nightlife"). Leave the "location" object empty for general items; for
   specific items fill it only if explicitly provided or clearly inferred.
4. Keep each "paragraph" in its original language.
5. Extract contacts only when a specific provider is recommended by name
   with personal or direct contact information; otherwise return an empty
   array.
6. Only provide the JSON object. No prose or explanations.`

// BuildPrompt assembles the analysis instruction from the configured
// category master list.
func BuildPrompt(cats *config.CategorySet) string {
	return fmt.Sprintf(analysisPromptTemplate,
		strings.Join(cats.Allowed, ", "),
		strings.Join(cats.Geo, ", "),
	)
}

// mapsPrompt frames a resolved maps URL, optionally with its reverse-geocoded
// address, ahead of the base instruction.
func mapsPrompt(base, finalURL, address string) string {
	if address != "" {
		return fmt.Sprintf("Identify this place. URL: %s\nAddress: %s\n\n%s", finalURL, address, base)
	}
	return fmt.Sprintf("Identify this place from the URL: %s\n\n%s", finalURL, base)
}

// textPrompt frames scraped or pasted text ahead of the base instruction.
func textPrompt(base, text string) string {
	return fmt.Sprintf("Analyze this text and extract locations:\n%s\n\n%s", text, base)
}
