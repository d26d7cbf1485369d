// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"reflect"
	"testing"
)

func TestPreOrder(t *testing.T) {
	po := PreOrder(graphMuchnick, 0)
	want := []int{0, 1, 2, 3, 4, 5, 7, 6}
	if !reflect.DeepEqual(want, po) {
		t.Errorf("want %v, got %v", want, po)
	}
}

func TestPostOrder(t *testing.T) {
	po := PostOrder(graphMuchnick, 0)
	want := []int{3, 7, 5, 6, 4, 2, 1, 0}
	if !reflect.DeepEqual(want, po) {
		t.Errorf("want %v, got %v", want, po)
	}
}

func TestWalkFIFOIsBreadthFirst(t *testing.T) {
	var got []int
	Walk(graphMuchnick, 0, FIFO, nil, nil, func(i int) { got = append(got, i) })
	want := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestWalkVisitsEachNodeOnce(t *testing.T) {
	seen := map[int]int{}
	Walk(graphCS252, 0, LIFO, nil, nil, func(i int) { seen[i]++ })
	for i := 0; i < graphCS252.NumNodes(); i++ {
		if seen[i] != 1 {
			t.Errorf("node %d visited %d times, want 1", i, seen[i])
		}
	}
}
