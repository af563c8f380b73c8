// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package stimulus

import "errors"

var (
	// ErrConfiguration is returned for invalid configuration or catalog
	// contents (empty gain candidates, missing reference recording).
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation is returned when a recording does not contain a usable
	// stimulus.
	ErrValidation = errors.New("validation error")
)
