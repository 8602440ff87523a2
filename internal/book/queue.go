package book

import (
	"github.com/google/uuid"

	"github.com/mvance/pairbook/internal/domain"
)

// queueNode is a link in the doubly-linked order queue. Links are kept in
// an id → node index so cancellation removes from the middle in O(1).
type queueNode struct {
	order *domain.Order
	prev  *queueNode
	next  *queueNode
}

// Queue is the FIFO of resting orders at a single price. Head is the oldest
// order and fills first; arbitrary-position removal preserves the relative
// order of the rest.
type Queue struct {
	head  *queueNode
	tail  *queueNode
	nodes map[uuid.UUID]*queueNode
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		nodes: make(map[uuid.UUID]*queueNode),
	}
}

// Len returns the number of orders in the queue.
func (q *Queue) Len() int {
	return len(q.nodes)
}

// Empty reports whether the queue has no orders.
func (q *Queue) Empty() bool {
	return len(q.nodes) == 0
}

// Contains reports whether the order id is in the queue.
func (q *Queue) Contains(id uuid.UUID) bool {
	_, ok := q.nodes[id]
	return ok
}

// Push appends the order at the tail.
func (q *Queue) Push(o *domain.Order) {
	n := &queueNode{order: o, prev: q.tail}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.nodes[o.ID] = n
}

// Pop removes and returns the head order. It returns domain.ErrEmptyQueue
// when the queue is empty.
func (q *Queue) Pop() (*domain.Order, error) {
	if q.head == nil {
		return nil, domain.ErrEmptyQueue
	}
	n := q.head
	q.unlink(n)
	return n.order, nil
}

// Remove unlinks an arbitrary order by id. It returns domain.ErrEmptyQueue
// when the queue is empty and domain.ErrOrderNotFound when the id is absent.
func (q *Queue) Remove(id uuid.UUID) (*domain.Order, error) {
	if q.head == nil {
		return nil, domain.ErrEmptyQueue
	}
	n, ok := q.nodes[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	q.unlink(n)
	return n.order, nil
}

// First returns the head order without removing it, or nil when empty.
func (q *Queue) First() *domain.Order {
	if q.head == nil {
		return nil
	}
	return q.head.order
}

// Last returns the tail order without removing it, or nil when empty.
func (q *Queue) Last() *domain.Order {
	if q.tail == nil {
		return nil
	}
	return q.tail.order
}

func (q *Queue) unlink(n *queueNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		q.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	delete(q.nodes, n.order.ID)
}
