package web

import "fmt"

// pluralize formats count with the matching noun, e.g. "1 imagen" or
// "3 imágenes".
func pluralize(count int, singular, plural string) string {
	noun := plural
	if count == 1 {
		noun = singular
	}
	return fmt.Sprintf("%d %s", count, noun)
}
