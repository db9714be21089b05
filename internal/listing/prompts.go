package listing

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

const descriptionPrompt = `
	Actúa como un copywriter inmobiliario experto en el mercado español.
	A partir de las siguientes imágenes y datos, genera una descripción atractiva y vendedora para un anuncio inmobiliario.
	El tono debe ser: "%s".

	Datos de la propiedad:
	- Dirección/Zona: %s
	- Tipo de inmueble: %s
	- Número de habitaciones: %d
	- Precio de venta deseado por el propietario: %s

	Extrae características clave de las imágenes (luminosidad, estado de reforma, tipo de suelo, vistas, etc.) y úsalas para enriquecer el texto.
	Estructura el texto en párrafos cortos y fáciles de leer. Finaliza con una llamada a la acción invitando a una visita.
	No inventes características que no se puedan deducir de los datos o las imágenes.
	La descripción debe tener entre 150 y 250 palabras. El idioma de salida debe ser español.
`

// Must not include the owner's desired price.
const pricePrompt = `
	Actúa como un tasador inmobiliario experto en el mercado de España.
	Basándote en datos de mercado actuales, proporciona una estimación de precio de venta para la siguiente propiedad.
	Devuelve ÚNICAMENTE un rango de precio en euros (por ejemplo, "Entre 250.000€ y 275.000€"). No añadas ninguna otra palabra o explicación.

	Datos de la propiedad:
	- Dirección/Zona: %s
	- Tipo de inmueble: %s
	- Número de habitaciones: %d
`

func formatPrompt(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// DescriptionPrompt builds the copywriting prompt sent together with the photos.
func DescriptionPrompt(d ListingData) string {
	d = d.Normalize()
	return formatPrompt(descriptionPrompt, d.Tone, d.Address, d.PropertyType, d.Rooms, d.Price)
}

// PricePrompt builds the search-grounded price estimation prompt.
func PricePrompt(d ListingData) string {
	d = d.Normalize()
	return formatPrompt(pricePrompt, d.Address, d.PropertyType, d.Rooms)
}
