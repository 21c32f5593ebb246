package holidays

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// holidayJSON mirrors one entry of the public holiday feed
// (date.nager.at /api/v3/PublicHolidays/{year}/{country}).
type holidayJSON struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties"`
	Types       []string `json:"types"`
}

// PublicHoliday is one parsed feed entry.
type PublicHoliday struct {
	Date        time.Time
	Name        string
	LocalName   string
	CountryCode string
	// Global holidays apply to every region of the country.
	Global bool
	// Regions lists the ISO 3166-2 codes (e.g. DE-BY) the holiday is limited to.
	Regions []string
}

// DisplayName prefers the local name, falling back to the English one.
func (h PublicHoliday) DisplayName() string {
	if strings.TrimSpace(h.LocalName) != "" {
		return strings.TrimSpace(h.LocalName)
	}
	return strings.TrimSpace(h.Name)
}

// AppliesTo reports whether the holiday is observed in region.
// An empty region matches nationwide holidays only.
func (h PublicHoliday) AppliesTo(region string) bool {
	if h.Global {
		return true
	}
	region = strings.TrimSpace(region)
	if region == "" {
		return false
	}
	return slices.ContainsFunc(h.Regions, func(r string) bool {
		return strings.EqualFold(strings.TrimSpace(r), region)
	})
}

// ParseHolidaysJSON parses the feed body into holidays in feed order.
func ParseHolidaysJSON(data []byte) ([]PublicHoliday, error) {
	var entries []holidayJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holiday JSON: %w", err)
	}

	out := make([]PublicHoliday, 0, len(entries))
	for i, e := range entries {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(e.Date))
		if err != nil {
			return nil, fmt.Errorf("failed to parse date '%s' of holiday %d: %w", e.Date, i, err)
		}
		out = append(out, PublicHoliday{
			Date:        date,
			Name:        e.Name,
			LocalName:   e.LocalName,
			CountryCode: e.CountryCode,
			Global:      e.Global,
			Regions:     e.Counties,
		})
	}
	return out, nil
}

// FilterByRegion returns the holidays observed in region, keeping feed order.
func FilterByRegion(days []PublicHoliday, region string) []PublicHoliday {
	result := []PublicHoliday{}
	for _, day := range days {
		if day.AppliesTo(region) {
			result = append(result, day)
		}
	}
	return result
}

// GetHolidaysForYear returns the holidays falling in year.
func GetHolidaysForYear(days []PublicHoliday, year int) []PublicHoliday {
	result := []PublicHoliday{}
	for _, day := range days {
		if day.Date.Year() == year {
			result = append(result, day)
		}
	}
	return result
}
