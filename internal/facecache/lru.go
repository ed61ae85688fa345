package facecache

// lruNode stores its key for O(1) removal from the shard map.
type lruNode struct {
	key  Key
	prev *lruNode
	next *lruNode
}

// lruList is a doubly-linked list with the most recently used face at the
// head. Callers synchronize.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) Len() int { return l.len }

func (l *lruList) PushFront(k Key) *lruNode {
	n := &lruNode{key: k}
	l.linkFront(n)
	return n
}

func (l *lruList) MoveToFront(n *lruNode) {
	if n == nil || n == l.head {
		return
	}
	l.unlink(n)
	l.linkFront(n)
}

func (l *lruList) Remove(n *lruNode) {
	if n != nil {
		l.unlink(n)
	}
}

// RemoveOldest unlinks the tail and returns its key.
func (l *lruList) RemoveOldest() (Key, bool) {
	if l.tail == nil {
		return Key{}, false
	}
	n := l.tail
	l.unlink(n)
	return n.key, true
}

func (l *lruList) Clear() {
	l.head, l.tail, l.len = nil, nil, 0
}

func (l *lruList) linkFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.len++
}

func (l *lruList) unlink(n *lruNode) {
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
	n.prev, n.next = nil, nil
	l.len--
}
