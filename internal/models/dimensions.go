package models

// Dimension field names used across selector templating, input resolution and
// calculation expressions.
const (
	DimThickness = "thickness"
	DimLength    = "length"
	DimWidth     = "width"
	DimQuantity  = "quantity"
)

// DimensionFields lists the numeric dimension keys in substitution order.
var DimensionFields = []string{DimThickness, DimWidth, DimLength, DimQuantity}

// Dimensions carries the product measurements for one price request. Numeric
// values are in millimeters. The descriptive fields are only populated on the
// shipping path, where they come from the package configuration.
type Dimensions struct {
	Thickness float64 `json:"thickness"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Quantity  float64 `json:"quantity"`

	PackageType string `json:"package_type,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Display     string `json:"display,omitempty"`
}

// Get returns the numeric value for a dimension field name.
func (d Dimensions) Get(field string) (float64, bool) {
	switch field {
	case DimThickness:
		return d.Thickness, true
	case DimLength:
		return d.Length, true
	case DimWidth:
		return d.Width, true
	case DimQuantity:
		return d.Quantity, true
	}
	return 0, false
}

// Numeric returns the dimension values as a map, for calculation expressions.
func (d Dimensions) Numeric() map[string]float64 {
	return map[string]float64{
		DimThickness: d.Thickness,
		DimLength:    d.Length,
		DimWidth:     d.Width,
		DimQuantity:  d.Quantity,
	}
}

// FromPackage pre-fills dimensions from a shipping package, applying the
// caller's thickness/quantity overrides when present.
func FromPackage(pkg *PackageConfig, thicknessOverride, quantityOverride *float64) Dimensions {
	d := Dimensions{
		PackageType: pkg.PackageID,
		Thickness:   pkg.Thickness,
		Length:      pkg.Length,
		Width:       pkg.Width,
		Quantity:    pkg.Quantity,
		Name:        pkg.Name,
		Description: pkg.Description,
		Display:     pkg.Display,
	}
	if thicknessOverride != nil {
		d.Thickness = *thicknessOverride
	}
	if quantityOverride != nil {
		d.Quantity = *quantityOverride
	}
	return d
}

// PriceResult is the VAT-aware price pair produced by a completed run.
type PriceResult struct {
	ExclVAT float64 `json:"price_excl_vat"`
	InclVAT float64 `json:"price_incl_vat"`
}
