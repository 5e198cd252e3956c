package config

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// CategoryEntry is one row of the category master list.
type CategoryEntry struct {
	Type          string `json:"type"`
	IsGeoLocation bool   `json:"is_geo_location"`
}

// CategorySet holds the allowed recommendation categories and the subset
// usable as hierarchy node types. A missing or empty master list is a
// startup-fatal condition, never a per-job error.
type CategorySet struct {
	Allowed []string
	Geo     []string
}

// categoriesFile is the on-disk shape of the master list.
type categoriesFile struct {
	MasterList []CategoryEntry `json:"master_list"`
}

// LoadCategories reads the category master list from path.
func LoadCategories(path string) (*CategorySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read categories %s", path)
	}

	var file categoriesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "config: parse categories %s", path)
	}

	if len(file.MasterList) == 0 {
		return nil, eris.Errorf("config: categories %s has empty master_list", path)
	}

	set := &CategorySet{}
	for _, entry := range file.MasterList {
		set.Allowed = append(set.Allowed, entry.Type)
		if entry.IsGeoLocation {
			set.Geo = append(set.Geo, entry.Type)
		}
	}
	return set, nil
}
