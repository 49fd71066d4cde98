package recommend

import "errors"

// ErrEmptyCatalog is returned when the catalog holds too few products to
// recommend anything (fewer than two for seed queries, none for text queries).
var ErrEmptyCatalog = errors.New("catalog has too few products for recommendations")

// ErrUnknownSeed is returned when the seed product id is not in the catalog.
var ErrUnknownSeed = errors.New("unknown seed product")
