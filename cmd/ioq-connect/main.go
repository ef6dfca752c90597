// Command ioq-connect connects to a server, sends a fixed HTTP request
// line, and prints whatever comes back until the peer closes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kepler-io/ioq"
	"github.com/kepler-io/ioq/control"
	"github.com/kepler-io/ioq/netaddr"
)

func main() {
	addrFlag := flag.String("addr", "127.0.0.1:9000", "address to connect to")
	batchFlag := flag.Int("batch", 4096, "receive buffer size")
	flag.Parse()

	cfg := control.NewConfigStore()
	cfg.SetConfig(map[string]any{"batchSize": *batchFlag})
	metrics := control.NewMetricsRegistry()

	guard, err := ioq.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-connect: init: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	addr, err := netaddr.ParseSocketAddr(*addrFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-connect: %v\n", err)
		os.Exit(1)
	}

	q, err := ioq.NewQueue()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-connect: new queue: %v\n", err)
		os.Exit(1)
	}
	defer q.Close()

	stream, err := ioq.Dial(q, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-connect: dial: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	batchSize := cfg.GetSnapshot()["batchSize"].(int)
	recvBuf := make([]byte, batchSize)

	for {
		ev, err := q.Dequeue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ioq-connect: dequeue: %v\n", err)
			return
		}
		switch ev.Kind {
		case ioq.EventConnect:
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "ioq-connect: connect failed: %v\n", ev.Err)
				return
			}
			metrics.Set("connects", 1)
			if err := stream.Send([]byte("GET / HTTP/1.0\r\n\r\n")); err != nil {
				fmt.Fprintf(os.Stderr, "ioq-connect: send: %v\n", err)
				return
			}
		case ioq.EventSend:
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "ioq-connect: send failed: %v\n", ev.Err)
				return
			}
			if err := stream.Receive(recvBuf); err != nil {
				fmt.Fprintf(os.Stderr, "ioq-connect: receive: %v\n", err)
				return
			}
		case ioq.EventReceive:
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "ioq-connect: receive failed: %v\n", ev.Err)
				return
			}
			if ev.N == 0 {
				return // peer closed
			}
			os.Stdout.Write(recvBuf[:ev.N])
			if err := stream.Receive(recvBuf); err != nil {
				fmt.Fprintf(os.Stderr, "ioq-connect: receive: %v\n", err)
				return
			}
		}
	}
}
