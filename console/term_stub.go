// Copyright (C) 2026 tinystalk Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

//go:build !unix

package console

import "io"

// rawTerminal is a no-op off unix: a platform without a raw-mode ioctl
// just reads cooked, line-buffered input instead of failing to build.
type rawTerminal struct{}

func enterRawMode(io.Reader) rawTerminal { return rawTerminal{} }

func (rawTerminal) restore() error { return nil }
