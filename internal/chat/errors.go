package chat

import "github.com/rotisserie/eris"

var ErrInvalidRequest = eris.New("chat: invalid request")
