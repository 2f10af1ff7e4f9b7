package internal

import "errors"

var ErrCodeExists = errors.New("short code already exists")
var ErrLinkNotFound = errors.New("link not found")
