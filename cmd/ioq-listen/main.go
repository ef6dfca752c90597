// Command ioq-listen accepts connections on an address and prints each
// one's identity, without exchanging any data — the minimal listener
// sample.
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
	addrFlag := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	flag.Parse()

	cfg := control.NewConfigStore()
	cfg.SetConfig(map[string]any{"listen": *addrFlag})
	metrics := control.NewMetricsRegistry()

	guard, err := ioq.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-listen: init: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	q, err := ioq.NewQueue()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-listen: new queue: %v\n", err)
		os.Exit(1)
	}
	defer q.Close()

	addr, err := netaddr.ParseSocketAddr(cfg.GetSnapshot()["listen"].(string))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-listen: %v\n", err)
		os.Exit(1)
	}

	ln, err := ioq.Listen(q, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-listen: listen: %v\n", err)
		os.Exit(1)
	}
	defer ln.Close()

	fmt.Printf("listening on %s\n", ln.Addr())
	if err := ln.Accept(); err != nil {
		fmt.Fprintf(os.Stderr, "ioq-listen: accept: %v\n", err)
		os.Exit(1)
	}

	for {
		ev, err := q.Dequeue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ioq-listen: dequeue: %v\n", err)
			return
		}
		if ev.Kind != ioq.EventAccept {
			continue
		}
		if ev.Err != nil {
			fmt.Fprintf(os.Stderr, "ioq-listen: accept failed: %v\n", ev.Err)
			continue
		}
		metrics.Set("accepts", intPlusOne(metrics.GetSnapshot()["accepts"]))
		fmt.Printf("accepted a connection from %s\n", ev.Stream.AddrRemote())
		ev.Stream.Close()
		if err := ln.Accept(); err != nil {
			fmt.Fprintf(os.Stderr, "ioq-listen: re-submit accept: %v\n", err)
			return
		}
	}
}

func intPlusOne(v any) int {
	n, _ := v.(int)
	return n + 1
}
