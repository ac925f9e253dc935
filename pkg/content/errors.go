package content

import "errors"

var (
	ErrInvalidCatalog = errors.New("content: invalid catalog data")
	ErrEmptyCatalog   = errors.New("content: catalog contains no locales")
	ErrInvalidLocale  = errors.New("content: invalid locale tag")
)
