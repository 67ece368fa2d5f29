// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// StringSet is an unordered set of strings persisted as a JSON array.
// Values are deduplicated and sorted on write so equal sets store equal text.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	return StringSet(values).Normalize()
}

// Normalize returns a sorted copy without duplicates or empty members.
func (s StringSet) Normalize() StringSet {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make(StringSet, 0, len(s))
	for _, v := range s {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy that shares no backing array with s.
func (s StringSet) Clone() StringSet {
	if s == nil {
		return nil
	}
	return append(make(StringSet, 0, len(s)), s...)
}

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s.Normalize())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported StringSet source type %T", value)
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}
	*s = StringSet(values)
	return nil
}

// GormDataType keeps the column portable between postgres and sqlite.
func (StringSet) GormDataType() string {
	return "text"
}

// Table names of the primary and derived lookup tables.
const (
	TableAssets              = "assets"
	TableAssetsByProject     = "assets_by_project"
	TableAssetsByName        = "assets_by_name"
	TableAssetsByLicense     = "assets_by_license"
	TableAssetsByCategory    = "assets_by_category"
	TableUsers               = "users"
	TableUsersByOrganization = "users_by_organization"
)
