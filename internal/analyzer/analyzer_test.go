package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/competitor-price-watcher/internal/models"
)

func TestAnalyzeLabelForLink(t *testing.T) {
	html := `<html><body>
		<form>
			<label for="dikte_select">Dikte (mm)</label>
			<select id="dikte_select"><option>2 mm</option><option>3 mm</option></select>
			<label for="lengte_input">Lengte</label>
			<input type="number" id="lengte_input">
			<label for="breedte_input">Breedte</label>
			<input type="number" id="breedte_input">
		</form>
	</body></html>`

	fields, err := Analyze(html)
	require.NoError(t, err)

	require.Contains(t, fields, models.DimThickness)
	assert.Equal(t, "dikte_select", fields[models.DimThickness][0].ID)
	assert.Equal(t, "select", fields[models.DimThickness][0].Tag)

	require.Contains(t, fields, models.DimLength)
	assert.Equal(t, "lengte_input", fields[models.DimLength][0].ID)
	assert.Equal(t, "input", fields[models.DimLength][0].Tag)

	require.Contains(t, fields, models.DimWidth)
	assert.Equal(t, "breedte_input", fields[models.DimWidth][0].ID)
}

func TestAnalyzeProximityFallback(t *testing.T) {
	// No label-for links: the field sits next to its label text in a shared
	// container.
	html := `<html><body>
		<div class="row">
			<span>Länge in mm</span>
			<input type="text" id="laenge_feld">
		</div>
	</body></html>`

	fields, err := Analyze(html)
	require.NoError(t, err)

	require.Contains(t, fields, models.DimLength)
	assert.Equal(t, "laenge_feld", fields[models.DimLength][0].ID)
}

func TestAnalyzePrefersLabelForOverProximity(t *testing.T) {
	html := `<html><body>
		<div>
			<label for="echte_lengte">lengte</label>
			<input type="number" id="afleider">
			<input type="number" id="echte_lengte">
		</div>
	</body></html>`

	fields, err := Analyze(html)
	require.NoError(t, err)

	require.Contains(t, fields, models.DimLength)
	assert.Equal(t, "echte_lengte", fields[models.DimLength][0].ID)
}

func TestAnalyzeEnglishHeightMapsToWidth(t *testing.T) {
	html := `<html><body>
		<div>
			<p>Height</p>
			<input type="number" id="height_field">
		</div>
	</body></html>`

	fields, err := Analyze(html)
	require.NoError(t, err)

	require.Contains(t, fields, models.DimWidth)
	assert.Equal(t, "height_field", fields[models.DimWidth][0].ID)
}

func TestAnalyzeNoRecognizableFields(t *testing.T) {
	fields, err := Analyze(`<html><body><p>Welkom bij onze shop</p></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestAnalyzeMalformedHTMLStillParses(t *testing.T) {
	// html.Parse repairs broken markup, so analysis degrades instead of
	// failing.
	fields, err := Analyze(`<div><span>lengte</span><input id="l1"`)
	require.NoError(t, err)
	assert.NotNil(t, fields)
}
