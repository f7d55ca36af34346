// Package repository holds the SQL repositories.  Sentinel errors let the
// account and worktime layers and the handlers tell failures apart without
// inspecting driver errors.
package repository

import "errors"

// ErrRefreshInvalid covers unknown, expired, revoked and already rotated
// refresh tokens alike.
var ErrRefreshInvalid = errors.New("invalid refresh token")
