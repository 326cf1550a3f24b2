package domain

import "strings"

type City string

const (
	CityNYC          City = "nyc"
	CityPhiladelphia City = "philadelphia"
)

// Category identifies one violation/finding feed grouped for bulk dismissal.
// Each category belongs to exactly one city.
type Category string

const (
	// NYC feeds.
	CategoryHPDViolations       Category = "hpd_violations"
	CategoryDOBViolations       Category = "dob_violations"
	CategoryElevatorInspections Category = "elevator_inspections"
	CategoryBoilerInspections   Category = "boiler_inspections"
	CategoryElectricalPermits   Category = "electrical_permits"

	// Philadelphia L&I feeds.
	CategoryLIViolations     Category = "li_violations"
	CategoryLIPermits        Category = "li_permits"
	CategoryLICertifications Category = "li_certifications"
)

type categoryInfo struct {
	city City

	// itemLevel is true for feeds whose records carry a stable external id,
	// which is what makes individual dismissal (and section cascade) possible.
	// The remaining feeds only support section-level suppression.
	itemLevel bool
}

var categories = map[Category]categoryInfo{
	CategoryHPDViolations:       {city: CityNYC, itemLevel: true},
	CategoryDOBViolations:       {city: CityNYC, itemLevel: true},
	CategoryElevatorInspections: {city: CityNYC, itemLevel: false},
	CategoryBoilerInspections:   {city: CityNYC, itemLevel: false},
	CategoryElectricalPermits:   {city: CityNYC, itemLevel: false},

	CategoryLIViolations:     {city: CityPhiladelphia, itemLevel: true},
	CategoryLIPermits:        {city: CityPhiladelphia, itemLevel: false},
	CategoryLICertifications: {city: CityPhiladelphia, itemLevel: false},
}

func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := categories[c]
	if !ok {
		return "", false
	}
	return c, true
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

func (c Category) City() City {
	return categories[c].city
}

// ItemLevel reports whether the category supports per-violation dismissal.
func (c Category) ItemLevel() bool {
	return categories[c].itemLevel
}

// CategoriesForCity returns the full category set of a city in a stable order.
func CategoriesForCity(city City) []Category {
	switch city {
	case CityNYC:
		return []Category{
			CategoryHPDViolations,
			CategoryDOBViolations,
			CategoryElevatorInspections,
			CategoryBoilerInspections,
			CategoryElectricalPermits,
		}
	case CityPhiladelphia:
		return []Category{
			CategoryLIViolations,
			CategoryLIPermits,
			CategoryLICertifications,
		}
	default:
		return nil
	}
}

func ParseCity(raw string) (City, bool) {
	switch City(strings.ToLower(strings.TrimSpace(raw))) {
	case CityNYC:
		return CityNYC, true
	case CityPhiladelphia:
		return CityPhiladelphia, true
	default:
		return "", false
	}
}
