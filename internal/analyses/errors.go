package analyses

import "github.com/rotisserie/eris"

var (
	ErrNotFound       = eris.New("analyses: not found")
	ErrInvalidRequest = eris.New("analyses: invalid request")
)
