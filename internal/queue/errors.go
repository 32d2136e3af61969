package queue

import "errors"

var ErrQueueClosed = errors.New("queue closed")
