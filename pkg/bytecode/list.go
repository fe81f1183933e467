package bytecode

import "errors"

// ErrInvalidCursorState is returned when a cursor operation needs a current
// instruction and the cursor has none.
var ErrInvalidCursorState = errors.New("invalid cursor state")

const nilNode = -1

type node struct {
	insn       Instruction
	prev, next int
	removed    bool
}

// List is an ordered, mutable sequence of instructions. Nodes live in an
// arena and keep their index for the lifetime of the list, so insertion is
// O(1) and never invalidates a Cursor.
type List struct {
	nodes      []node
	head, tail int
	n          int
}

// NewList returns a list holding insns in order.
func NewList(insns ...Instruction) *List {
	l := &List{head: nilNode, tail: nilNode}
	for _, in := range insns {
		l.Append(in)
	}
	return l
}

// Len returns the number of instructions, labels included.
func (l *List) Len() int {
	return l.n
}

// Append adds in at the end of the list.
func (l *List) Append(in Instruction) {
	l.insertBefore(nilNode, in)
}

// Slice returns the instructions in list order.
func (l *List) Slice() []Instruction {
	out := make([]Instruction, 0, l.n)
	for i := l.head; i != nilNode; i = l.nodes[i].next {
		out = append(out, l.nodes[i].insn)
	}
	return out
}

// Iterator returns a cursor positioned before the first instruction.
func (l *List) Iterator() *Cursor {
	return &Cursor{list: l, next: l.head, last: nilNode}
}

// insertBefore links in before the node at index at (nilNode appends) and
// returns its arena index.
func (l *List) insertBefore(at int, in Instruction) int {
	idx := len(l.nodes)
	nd := node{insn: in, prev: nilNode, next: at}
	if at == nilNode {
		nd.prev = l.tail
	} else {
		nd.prev = l.nodes[at].prev
	}
	l.nodes = append(l.nodes, nd)
	if nd.prev == nilNode {
		l.head = idx
	} else {
		l.nodes[nd.prev].next = idx
	}
	if at == nilNode {
		l.tail = idx
	} else {
		l.nodes[at].prev = idx
	}
	l.n++
	return idx
}

func (l *List) unlink(idx int) {
	nd := &l.nodes[idx]
	if nd.prev == nilNode {
		l.head = nd.next
	} else {
		l.nodes[nd.prev].next = nd.next
	}
	if nd.next == nilNode {
		l.tail = nd.prev
	} else {
		l.nodes[nd.next].prev = nd.prev
	}
	// prev/next are kept so cursors parked on a removed node can move on.
	nd.removed = true
	l.n--
}

// Cursor walks a List. Like a list iterator it sits in the gap between two
// instructions; Next and Previous move across one instruction and make it
// the current one.
type Cursor struct {
	list *List
	next int // node after the gap
	last int // current instruction
	// inserted holds nodes added through this cursor. A forward scan never
	// returns them.
	inserted map[int]struct{}
}

// HasNext reports whether Next would return an instruction.
func (c *Cursor) HasNext() bool {
	return c.skipForward(c.next) != nilNode
}

// Next advances past the next instruction and returns it.
func (c *Cursor) Next() (Instruction, bool) {
	idx := c.skipForward(c.next)
	if idx == nilNode {
		c.next = nilNode
		c.last = nilNode
		return Instruction{}, false
	}
	c.last = idx
	c.next = c.list.nodes[idx].next
	return c.list.nodes[idx].insn, true
}

// HasPrevious reports whether Previous would return an instruction.
func (c *Cursor) HasPrevious() bool {
	return c.prevIndex() != nilNode
}

// Previous moves back across the previous instruction and returns it.
func (c *Cursor) Previous() (Instruction, bool) {
	idx := c.prevIndex()
	if idx == nilNode {
		c.last = nilNode
		return Instruction{}, false
	}
	c.last = idx
	c.next = idx
	return c.list.nodes[idx].insn, true
}

// Current returns the instruction last returned by Next or Previous.
func (c *Cursor) Current() (Instruction, error) {
	if c.last == nilNode {
		return Instruction{}, ErrInvalidCursorState
	}
	return c.list.nodes[c.last].insn, nil
}

// InsertBefore inserts in immediately before the current instruction.
func (c *Cursor) InsertBefore(in Instruction) error {
	if c.last == nilNode {
		return ErrInvalidCursorState
	}
	c.remember(c.list.insertBefore(c.last, in))
	return nil
}

// InsertAfter inserts in immediately after the current instruction. The
// inserted instruction is skipped by the continuing forward scan.
func (c *Cursor) InsertAfter(in Instruction) error {
	if c.last == nilNode {
		return ErrInvalidCursorState
	}
	idx := c.list.insertBefore(c.list.nodes[c.last].next, in)
	c.remember(idx)
	return nil
}

// Add inserts in into the gap. A following Next returns the instruction
// that came after the gap before the call; the current instruction is
// cleared.
func (c *Cursor) Add(in Instruction) {
	next := c.skipForward(c.next)
	c.remember(c.list.insertBefore(next, in))
	c.next = next
	c.last = nilNode
}

// Remove unlinks the current instruction.
func (c *Cursor) Remove() error {
	if c.last == nilNode {
		return ErrInvalidCursorState
	}
	if c.next == c.last {
		c.next = c.list.nodes[c.last].next
	}
	c.list.unlink(c.last)
	c.last = nilNode
	return nil
}

func (c *Cursor) remember(idx int) {
	if c.inserted == nil {
		c.inserted = make(map[int]struct{})
	}
	c.inserted[idx] = struct{}{}
}

// skipForward returns the first live node at or after idx that was not
// inserted by this cursor.
func (c *Cursor) skipForward(idx int) int {
	for idx != nilNode {
		nd := &c.list.nodes[idx]
		if _, mine := c.inserted[idx]; !nd.removed && !mine {
			return idx
		}
		idx = nd.next
	}
	return nilNode
}

func (c *Cursor) prevIndex() int {
	var idx int
	if next := c.skipForward(c.next); next == nilNode {
		idx = c.list.tail
	} else {
		idx = c.list.nodes[next].prev
	}
	for idx != nilNode && c.list.nodes[idx].removed {
		idx = c.list.nodes[idx].prev
	}
	return idx
}
