package session

import "errors"

// ErrInvalidState reports an operation that required session context that was
// not present, such as an active chat or a signed-in actor. The store is
// never touched when an operation returns this.
var ErrInvalidState = errors.New("invalid session state")
