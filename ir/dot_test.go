// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteDot(t *testing.T) {
	p := NewProgram()
	f := p.NewFunction("f")
	entry, succs := buildDiamond(p, f)
	BuildBlocks(f, entry, succs)

	var buf bytes.Buffer
	if err := WriteDot(f, &buf); err != nil {
		t.Fatalf("WriteDot: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph \"f\" {\n") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "n0 -> n1") && !strings.Contains(out, "n0 -> n2") {
		t.Errorf("expected an edge out of the entry block, got:\n%s", out)
	}
}
