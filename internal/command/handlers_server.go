package command

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

func cmdInfo(d *Dispatcher, c *Client, args []string) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "# Server\r\n")
	fmt.Fprintf(&b, "redis_version:3.0.0\r\n")
	fmt.Fprintf(&b, "go_version:%s\r\n", runtime.Version())
	fmt.Fprintf(&b, "# Clients\r\n")
	fmt.Fprintf(&b, "# Keyspace\r\n")
	for i := 0; i < d.Keyspace.NumDBs(); i++ {
		size := d.Keyspace.DB(i).Size()
		if size > 0 {
			fmt.Fprintf(&b, "db%d:keys=%d\r\n", i, size)
		}
	}
	stats := d.Keyspace.Stats()
	fmt.Fprintf(&b, "# Stats\r\n")
	fmt.Fprintf(&b, "expired_keys:%d\r\n", stats.ExpiredKeys)
	fmt.Fprintf(&b, "evicted_keys:%d\r\n", stats.EvictedKeys)
	fmt.Fprintf(&b, "avg_ttl:%d\r\n", stats.AvgTTLMs)
	return Bulk(b.String())
}

func cmdCommand(d *Dispatcher, c *Client, args []string) Reply {
	out := make([]Reply, 0, len(d.Table))
	for name, spec := range d.Table {
		out = append(out, Array(Bulk(strings.ToLower(name)), Integer(int64(spec.Arity))))
	}
	return Array(out...)
}

// cmdConfig is a minimal CONFIG GET/SET that knows only maxmemory: GET
// maxmemory reports the dispatcher's MemoryLimit and SET maxmemory
// updates it. GET of any other parameter returns an empty array, and
// SET of any other parameter returns OK without changing anything.
func cmdConfig(d *Dispatcher, c *Client, args []string) Reply {
	if len(args) == 0 {
		return errSyntax()
	}
	switch strings.ToUpper(args[0]) {
	case "GET":
		if len(args) != 2 {
			return errSyntax()
		}
		switch strings.ToLower(args[1]) {
		case "maxmemory":
			return Array(Bulk("maxmemory"), Bulk(strconv.FormatInt(d.MemoryLimit, 10)))
		default:
			return Array()
		}
	case "SET":
		if len(args) != 3 {
			return errSyntax()
		}
		if strings.ToLower(args[1]) == "maxmemory" {
			n, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return errNotInteger()
			}
			d.MemoryLimit = n
		}
		return OK()
	default:
		return errSyntax()
	}
}

func cmdDebug(d *Dispatcher, c *Client, args []string) Reply {
	if len(args) == 0 {
		return errSyntax()
	}
	switch strings.ToUpper(args[0]) {
	case "SLEEP":
		if len(args) != 2 {
			return errSyntax()
		}
		secs, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return errNotFloat()
		}
		time.Sleep(time.Duration(secs * float64(time.Second)))
		return OK()
	case "JMAP":
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return Bulk(fmt.Sprintf("alloc=%d heap_objects=%d goroutines=%d", m.Alloc, m.HeapObjects, runtime.NumGoroutine()))
	default:
		return Err("ERR unknown DEBUG subcommand")
	}
}

func cmdSlowlog(d *Dispatcher, c *Client, args []string) Reply {
	if len(args) == 0 {
		return errSyntax()
	}
	switch strings.ToUpper(args[0]) {
	case "GET":
		n := -1
		if len(args) == 2 {
			if v, err := strconv.Atoi(args[1]); err == nil {
				n = v
			}
		}
		entries := d.SlowLog(n)
		out := make([]Reply, len(entries))
		for i, e := range entries {
			out[i] = Array(
				Integer(e.ID),
				Integer(e.Timestamp),
				Integer(e.DurationUs),
				StringArray(e.Args),
			)
		}
		return Array(out...)
	case "RESET":
		d.SlowLogReset()
		return OK()
	case "LEN":
		return Integer(int64(len(d.SlowLog(-1))))
	default:
		return errSyntax()
	}
}

func cmdShutdown(d *Dispatcher, c *Client, args []string) Reply {
	if d.Shutdown != nil {
		d.Shutdown()
	}
	return Reply{Kind: ReplySimpleString, Str: "OK", Close: true}
}
