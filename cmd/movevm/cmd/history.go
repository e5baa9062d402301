// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ava-labs/avalanchego/utils/buffer"
)

var ErrNoHistory = errors.New("no such history entry")

// history keeps the last [size] console lines. Entries are numbered from 1
// over the whole session, so a number stays valid until it is evicted.
type history struct {
	lines buffer.Deque[string]
	size  int
	// number of the oldest retained line
	first int
}

func newHistory(size int) *history {
	return &history{
		lines: buffer.NewUnboundedDeque[string](size + 1),
		size:  size,
		first: 1,
	}
}

func (h *history) add(line string) {
	if last, ok := h.lines.PeekRight(); ok && last == line {
		return
	}
	if h.lines.Len() == h.size {
		_, _ = h.lines.PopLeft()
		h.first++
	}
	h.lines.PushRight(line)
}

// expand resolves "!!" and "!N" to the recorded line. Other input is
// returned unchanged.
func (h *history) expand(line string) (string, error) {
	if !strings.HasPrefix(line, "!") {
		return line, nil
	}
	if line == "!!" {
		last, ok := h.lines.PeekRight()
		if !ok {
			return "", ErrNoHistory
		}
		return last, nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return "", ErrNoHistory
	}
	i := n - h.first
	if i < 0 || i >= h.lines.Len() {
		return "", ErrNoHistory
	}
	entry, _ := h.lines.Index(i)
	return entry, nil
}

// each calls [f] with every retained line and its number.
func (h *history) each(f func(n int, line string)) {
	for i, line := range h.lines.List() {
		f(h.first+i, line)
	}
}
