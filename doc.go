// Package ioq is a proactor-style asynchronous TCP library: a single
// completion queue delivers one event per submitted accept, connect,
// send, or receive operation, backed by real I/O completion ports on
// Windows and an epoll-driven emulation of the same contract on Linux.
//
// The typical shape of a program using this package is:
//
//	q, _ := ioq.NewQueue()
//	defer q.Close()
//
//	ln, _ := ioq.Listen(q, addr)
//	ln.Accept()
//
//	for {
//		ev, err := q.Dequeue()
//		...
//	}
package ioq
