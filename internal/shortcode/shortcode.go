// Package shortcode mints the random identifiers links are reached by.
package shortcode

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Length of every generated code.
const Length = 6

// New returns a fresh random code from nanoid's URL-safe alphabet,
// backed by crypto/rand. Codes are not guaranteed unique; the links
// table's unique constraint catches collisions.
func New() (string, error) {
	return gonanoid.New(Length)
}
