// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package adapter

import "errors"

var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("client unauthorized")
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("version conflict")
	ErrServerUnavailable = errors.New("server unavailable")
	ErrUnsupportedOp     = errors.New("unsupported operation kind")
)
