package cache

// Node is an element of a List. The zero value is detached.
//
// Nodes are meant to be embedded (or held by pointer) in the value they
// order, so that moving or removing a value is O(1) without a map lookup.
type Node[T any] struct {
	Value T

	prev *Node[T]
	next *Node[T]
	list *List[T]
}

// Prev returns the node closer to the front, or nil.
func (n *Node[T]) Prev() *Node[T] { return n.prev }

// Next returns the node closer to the back, or nil.
func (n *Node[T]) Next() *Node[T] { return n.next }

// Detach removes the node from whatever list holds it.
func (n *Node[T]) Detach() {
	if n.list != nil {
		n.list.unlink(n)
	}
}

// Attached reports whether the node is currently in l.
func (n *Node[T]) Attached(l *List[T]) bool { return n.list == l && l != nil }

// List is a doubly linked list ordered from most recently used (front) to
// least recently used (back). It is not safe for concurrent use.
type List[T any] struct {
	head *Node[T]
	tail *Node[T]
	len  int
}

// Len returns the number of nodes in the list.
func (l *List[T]) Len() int { return l.len }

// Front returns the most recently used node, or nil.
func (l *List[T]) Front() *Node[T] { return l.head }

// Back returns the least recently used node, or nil.
func (l *List[T]) Back() *Node[T] { return l.tail }

// MoveToFront inserts n at the front, detaching it from its current
// position first. A node belonging to another list is moved over.
func (l *List[T]) MoveToFront(n *Node[T]) {
	if n == nil || n == l.head {
		return
	}
	if n.list != nil {
		n.list.unlink(n)
	}

	n.list = l
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

// InsertAfter places n directly behind mark. Mark must be in l.
func (l *List[T]) InsertAfter(n, mark *Node[T]) {
	if n == nil || mark == nil || mark.list != l || n == mark {
		return
	}
	if n.list != nil {
		n.list.unlink(n)
	}

	n.list = l
	n.prev = mark
	n.next = mark.next
	if mark.next != nil {
		mark.next.prev = n
	} else {
		l.tail = n
	}
	mark.next = n
	l.len++
}

// Remove detaches n from the list. Removing a detached node is a no-op.
func (l *List[T]) Remove(n *Node[T]) {
	if n == nil || n.list != l {
		return
	}
	l.unlink(n)
}

// Clear detaches every node.
func (l *List[T]) Clear() {
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next, n.list = nil, nil, nil
		n = next
	}
	l.head = nil
	l.tail = nil
	l.len = 0
}

// unlink removes n from the list and clears its links.
func (l *List[T]) unlink(n *Node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}

	n.prev = nil
	n.next = nil
	n.list = nil
	l.len--
}
