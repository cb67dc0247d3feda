// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"fmt"
	"io"
	"os"
)

// progressLine overwrites a single status line in place so long
// measurement phases stay visible without scrolling the terminal.
type progressLine struct {
	w     io.Writer
	dirty bool
}

func newProgressLine(w io.Writer) *progressLine {
	if w == nil {
		w = os.Stderr
	}
	return &progressLine{w: w}
}

// Update rewrites the status line. Long lines are padded over so a
// shorter update does not leave trailing characters behind.
func (p *progressLine) Update(format string, args ...any) {
	fmt.Fprintf(p.w, "\r%-78s", fmt.Sprintf(format, args...))
	p.dirty = true
}

// Done terminates the status line, if one was ever written.
func (p *progressLine) Done() {
	if p.dirty {
		fmt.Fprintln(p.w)
		p.dirty = false
	}
}
