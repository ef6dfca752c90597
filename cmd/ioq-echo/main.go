// Command ioq-echo accepts connections and echoes back whatever each
// one sends, until the peer closes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kepler-io/ioq"
	"github.com/kepler-io/ioq/bufpool"
	"github.com/kepler-io/ioq/control"
	"github.com/kepler-io/ioq/netaddr"
)

// conns tracks the one outstanding receive buffer per live connection,
// keyed by the stream the buffer belongs to.
type conns struct {
	pool  *bufpool.Manager
	batch int
	bufs  map[*ioq.TcpStream]*bufpool.Buffer
}

func (c *conns) startReceive(s *ioq.TcpStream) error {
	buf := c.pool.Get(c.batch, 0)
	c.bufs[s] = buf
	return s.Receive(buf.Bytes())
}

func (c *conns) drop(s *ioq.TcpStream) {
	delete(c.bufs, s)
	s.Close()
}

func main() {
	addrFlag := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	batchFlag := flag.Int("batch", 4096, "receive buffer size")
	flag.Parse()

	cfg := control.NewConfigStore()
	cfg.SetConfig(map[string]any{"listen": *addrFlag, "batchSize": *batchFlag})
	metrics := control.NewMetricsRegistry()

	guard, err := ioq.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-echo: init: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	addr, err := netaddr.ParseSocketAddr(cfg.GetSnapshot()["listen"].(string))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-echo: %v\n", err)
		os.Exit(1)
	}
	batchSize := cfg.GetSnapshot()["batchSize"].(int)

	q, err := ioq.NewQueue()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-echo: new queue: %v\n", err)
		os.Exit(1)
	}
	defer q.Close()

	ln, err := ioq.Listen(q, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ioq-echo: listen: %v\n", err)
		os.Exit(1)
	}
	defer ln.Close()

	fmt.Printf("echoing on %s\n", ln.Addr())
	if err := ln.Accept(); err != nil {
		fmt.Fprintf(os.Stderr, "ioq-echo: accept: %v\n", err)
		os.Exit(1)
	}

	live := &conns{pool: bufpool.NewManager(), batch: batchSize, bufs: map[*ioq.TcpStream]*bufpool.Buffer{}}

	for {
		ev, err := q.Dequeue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ioq-echo: dequeue: %v\n", err)
			return
		}
		switch ev.Kind {
		case ioq.EventAccept:
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "ioq-echo: accept failed: %v\n", ev.Err)
			} else {
				n, _ := metrics.GetSnapshot()["accepts"].(int)
				metrics.Set("accepts", n+1)
				if err := live.startReceive(ev.Stream); err != nil {
					fmt.Fprintf(os.Stderr, "ioq-echo: receive: %v\n", err)
				}
			}
			if err := ln.Accept(); err != nil {
				fmt.Fprintf(os.Stderr, "ioq-echo: re-submit accept: %v\n", err)
				return
			}

		case ioq.EventReceive:
			if ev.Err != nil || ev.N == 0 {
				live.drop(ev.Stream)
				continue
			}
			buf := live.bufs[ev.Stream]
			if err := ev.Stream.Send(buf.Bytes()[:ev.N]); err != nil {
				fmt.Fprintf(os.Stderr, "ioq-echo: send: %v\n", err)
			}

		case ioq.EventSend:
			if ev.Err != nil {
				live.drop(ev.Stream)
				continue
			}
			if err := live.startReceive(ev.Stream); err != nil {
				fmt.Fprintf(os.Stderr, "ioq-echo: receive: %v\n", err)
			}
		}
	}
}
