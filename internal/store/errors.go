// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package store

import "errors"

// Sentinel errors returned by storage backends. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrKeyNotFound is returned by KeyValue.Get when no value is stored
	// under the requested key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBuildingSQLQuery is returned when constructing a parameterised
	// SQL query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a query against the
	// local database fails.
	ErrExecutingQuery = errors.New("error executing sql query")
)
