package models

// Multilingual field-name fragments used to recognize dimension fields in
// selectors and form labels (dutch, german, french alongside english).
var (
	LengthTerms    = []string{"length", "lengte", "hoogte", "länge", "höhe", "longueur", "hauteur"}
	WidthTerms     = []string{"width", "breedte", "breite", "largeur"}
	ThicknessTerms = []string{"thickness", "dikte", "dicke", "stärke", "épaisseur"}
	QuantityTerms  = []string{"qty", "quantity", "aantal", "menge", "anzahl", "quantité"}
)

// TermsFor returns the recognition fragments for a dimension field.
func TermsFor(field string) []string {
	switch field {
	case DimLength:
		return LengthTerms
	case DimWidth:
		return WidthTerms
	case DimThickness:
		return ThicknessTerms
	case DimQuantity:
		return QuantityTerms
	}
	return nil
}
