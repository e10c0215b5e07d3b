package queue

// Queue is an ordered event queue. The engine drains it once per tick
// with ReadAllMessages, which preserves enqueue (FIFO) order.
type Queue interface {
	Enqueue(item interface{}) error
	Dequeue() (interface{}, error)
	ReadAllMessages() ([]interface{}, error)
	Size() int
	Clear()
}

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
type ErrQueueFull struct{}

func (e *ErrQueueFull) Error() string {
	return "queue is full"
}

// IsFull returns true if err is an ErrQueueFull.
func IsFull(err error) bool {
	_, ok := err.(*ErrQueueFull)
	return ok
}

// ErrQueueEmpty is returned by Dequeue when the queue has no items.
type ErrQueueEmpty struct{}

func (e *ErrQueueEmpty) Error() string {
	return "queue is empty"
}

// IsEmpty returns true if err is an ErrQueueEmpty.
func IsEmpty(err error) bool {
	_, ok := err.(*ErrQueueEmpty)
	return ok
}
