package listing

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PropertyTypes lists the property types offered on the form, in display order.
var PropertyTypes = []string{
	"Piso",
	"Chalet",
	"Ático",
	"Adosado",
	"Local Comercial",
	"Oficina",
	"Terreno",
}

// Tones lists the copywriting tones offered on the form, in display order.
var Tones = []string{
	"Profesional y claro",
	"Lujoso y exclusivo",
	"Cálido y familiar",
	"Moderno y juvenil",
	"Directo y conciso",
}

const (
	DefaultRooms = 3
	DefaultPrice = "250.000€"
)

// ValidationError is a user-facing problem with the submitted form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ListingData holds the property attributes the agent types into the form.
type ListingData struct {
	Address      string `json:"address"`
	PropertyType string `json:"property_type"`
	Rooms        int    `json:"rooms"`
	Price        string `json:"price"`
	Tone         string `json:"tone"`
}

// DefaultListingData returns the form values shown for a new listing.
func DefaultListingData() ListingData {
	return ListingData{
		PropertyType: PropertyTypes[0],
		Rooms:        DefaultRooms,
		Price:        DefaultPrice,
		Tone:         Tones[0],
	}
}

// Normalize trims surrounding whitespace from the free-text fields.
func (d ListingData) Normalize() ListingData {
	d.Address = strings.TrimSpace(d.Address)
	d.PropertyType = strings.TrimSpace(d.PropertyType)
	d.Price = strings.TrimSpace(d.Price)
	d.Tone = strings.TrimSpace(d.Tone)
	return d
}

// Validate checks the data against the form rules. The returned error
// message is meant to be shown to the agent as-is.
func (d ListingData) Validate() error {
	d = d.Normalize()
	if d.Address == "" {
		return &ValidationError{Field: "address", Message: "Por favor, indica la dirección o zona del inmueble."}
	}
	if !slices.Contains(PropertyTypes, d.PropertyType) {
		return &ValidationError{Field: "propertyType", Message: fmt.Sprintf("Tipo de inmueble no válido: %q.", d.PropertyType)}
	}
	if d.Rooms < 0 {
		return &ValidationError{Field: "rooms", Message: "El número de habitaciones no puede ser negativo."}
	}
	if d.Price == "" {
		return &ValidationError{Field: "price", Message: "Por favor, indica el precio deseado."}
	}
	if !slices.Contains(Tones, d.Tone) {
		return &ValidationError{Field: "tone", Message: fmt.Sprintf("Tono no válido: %q.", d.Tone)}
	}
	return nil
}

// ParseRooms parses the room count form field.
func ParseRooms(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "rooms", Message: "Por favor, indica el número de habitaciones."}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Field: "rooms", Message: fmt.Sprintf("Número de habitaciones no válido: %q.", s)}
	}
	if n < 0 {
		return 0, &ValidationError{Field: "rooms", Message: "El número de habitaciones no puede ser negativo."}
	}
	return n, nil
}

// CacheKey returns a canonical representation of the data used when hashing
// generation requests.
func (d ListingData) CacheKey() string {
	d = d.Normalize()
	return strings.Join([]string{d.Address, d.PropertyType, strconv.Itoa(d.Rooms), d.Price, d.Tone}, "\x1f")
}
