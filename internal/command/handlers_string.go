package command

import (
	"strconv"
	"strings"

	"github.com/pwanbul/redis-3.0/internal/value"
)

func cmdSet(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	key, val := args[0], args[1]

	var expireAt int64
	var nx, xx bool
	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "EX":
			if i+1 >= len(args) {
				return errSyntax()
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return errNotInteger()
			}
			expireAt = nowMs() + n*1000
			i++
		case "PX":
			if i+1 >= len(args) {
				return errSyntax()
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return errNotInteger()
			}
			expireAt = nowMs() + n
			i++
		case "NX":
			nx = true
		case "XX":
			xx = true
		default:
			return errSyntax()
		}
	}

	exists := db.Exists(key)
	if nx && exists {
		return NilBulk()
	}
	if xx && !exists {
		return NilBulk()
	}

	db.Set(key, value.NewString(val), expireAt)
	if expireAt > 0 {
		d.QueuePropagation(c.DBIndex, "SET", []string{key, val})
		d.QueuePropagation(c.DBIndex, "PEXPIREAT", []string{key, strconv.FormatInt(expireAt, 10)})
	}
	return OK()
}

func cmdGet(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return NilBulk()
	}
	if cell.Kind != value.KindString {
		return errWrongType()
	}
	return Bulk(cell.Str)
}

func cmdGetSet(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	var old Reply
	if !ok {
		old = NilBulk()
	} else if cell.Kind != value.KindString {
		return errWrongType()
	} else {
		old = Bulk(cell.Str)
	}
	db.Set(args[0], value.NewString(args[1]), 0)
	return old
}

func cmdAppend(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForWrite(args[0])
	if !ok {
		db.Set(args[0], value.NewString(args[1]), 0)
		return Integer(int64(len(args[1])))
	}
	if cell.Kind != value.KindString {
		return errWrongType()
	}
	if cell.Shared() {
		cell = value.NewString(cell.Str)
		db.Set(args[0], cell, 0)
	}
	cell.Str += args[1]
	db.Touch(args[0])
	return Integer(int64(len(cell.Str)))
}

func cmdStrlen(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Integer(0)
	}
	if cell.Kind != value.KindString {
		return errWrongType()
	}
	return Integer(int64(len(cell.Str)))
}

func incrByGeneric(d *Dispatcher, c *Client, key string, delta int64) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForWrite(key)
	var cur int64
	if ok {
		if cell.Kind != value.KindString {
			return errWrongType()
		}
		n, err := strconv.ParseInt(cell.Str, 10, 64)
		if err != nil {
			return errNotInteger()
		}
		cur = n
	}
	cur += delta
	db.Set(key, value.NewString(strconv.FormatInt(cur, 10)), 0)
	return Integer(cur)
}

func cmdIncr(d *Dispatcher, c *Client, args []string) Reply { return incrByGeneric(d, c, args[0], 1) }
func cmdDecr(d *Dispatcher, c *Client, args []string) Reply { return incrByGeneric(d, c, args[0], -1) }

func cmdIncrBy(d *Dispatcher, c *Client, args []string) Reply {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return errNotInteger()
	}
	return incrByGeneric(d, c, args[0], n)
}

func cmdDecrBy(d *Dispatcher, c *Client, args []string) Reply {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return errNotInteger()
	}
	return incrByGeneric(d, c, args[0], -n)
}

func cmdMSet(d *Dispatcher, c *Client, args []string) Reply {
	if len(args)%2 != 0 {
		return errSyntax()
	}
	db := d.Keyspace.DB(c.DBIndex)
	for i := 0; i+1 < len(args); i += 2 {
		db.Set(args[i], value.NewString(args[i+1]), 0)
	}
	return OK()
}

func cmdMGet(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	out := make([]Reply, len(args))
	for i, k := range args {
		cell, ok := db.LookupForRead(k)
		if !ok || cell.Kind != value.KindString {
			out[i] = NilBulk()
			continue
		}
		out[i] = Bulk(cell.Str)
	}
	return Array(out...)
}
