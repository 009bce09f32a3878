package command

import (
	"container/list"
	"strconv"

	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/value"
)

func listCellForWrite(db *keyspace.Database, key string) (*value.Cell, Reply, bool) {
	cell, ok := db.LookupForWrite(key)
	if !ok {
		cell = value.NewList()
		db.Set(key, cell, 0)
		return cell, Reply{}, true
	}
	if cell.Kind != value.KindList {
		return nil, errWrongType(), false
	}
	return cell, Reply{}, true
}

func pushGeneric(d *Dispatcher, c *Client, args []string, front bool) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, errReply, ok := listCellForWrite(db, args[0])
	if !ok {
		return errReply
	}
	for _, v := range args[1:] {
		if front {
			cell.List.PushFront(v)
		} else {
			cell.List.PushBack(v)
		}
	}
	db.Touch(args[0])
	return Integer(int64(cell.List.Len()))
}

func cmdLPush(d *Dispatcher, c *Client, args []string) Reply { return pushGeneric(d, c, args, true) }
func cmdRPush(d *Dispatcher, c *Client, args []string) Reply { return pushGeneric(d, c, args, false) }

func popGeneric(d *Dispatcher, c *Client, args []string, front bool) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForWrite(args[0])
	if !ok {
		return NilBulk()
	}
	if cell.Kind != value.KindList {
		return errWrongType()
	}
	var el *list.Element
	if front {
		el = cell.List.Front()
	} else {
		el = cell.List.Back()
	}
	if el == nil {
		return NilBulk()
	}
	cell.List.Remove(el)
	if cell.List.Len() == 0 {
		db.Delete(args[0])
	} else {
		db.Touch(args[0])
	}
	return Bulk(el.Value.(string))
}

func cmdLPop(d *Dispatcher, c *Client, args []string) Reply { return popGeneric(d, c, args, true) }
func cmdRPop(d *Dispatcher, c *Client, args []string) Reply { return popGeneric(d, c, args, false) }

func cmdLLen(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Integer(0)
	}
	if cell.Kind != value.KindList {
		return errWrongType()
	}
	return Integer(int64(cell.List.Len()))
}

// listElements materializes a list Cell into a slice, front to back.
func listElements(cell *value.Cell) []string {
	out := make([]string, 0, cell.List.Len())
	for e := cell.List.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	return i
}

func cmdLRange(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Array()
	}
	if cell.Kind != value.KindList {
		return errWrongType()
	}
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return errNotInteger()
	}
	stop, err := strconv.Atoi(args[2])
	if err != nil {
		return errNotInteger()
	}
	elems := listElements(cell)
	n := len(elems)
	start = normalizeIndex(start, n)
	stop = normalizeIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return Array()
	}
	return StringArray(elems[start : stop+1])
}

func cmdLIndex(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return NilBulk()
	}
	if cell.Kind != value.KindList {
		return errWrongType()
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return errNotInteger()
	}
	idx = normalizeIndex(idx, cell.List.Len())
	if idx < 0 || idx >= cell.List.Len() {
		return NilBulk()
	}
	e := cell.List.Front()
	for i := 0; i < idx; i++ {
		e = e.Next()
	}
	return Bulk(e.Value.(string))
}

func cmdLSet(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForWrite(args[0])
	if !ok {
		return errNoSuchKey()
	}
	if cell.Kind != value.KindList {
		return errWrongType()
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return errNotInteger()
	}
	idx = normalizeIndex(idx, cell.List.Len())
	if idx < 0 || idx >= cell.List.Len() {
		return Err("ERR index out of range")
	}
	e := cell.List.Front()
	for i := 0; i < idx; i++ {
		e = e.Next()
	}
	e.Value = args[2]
	db.Touch(args[0])
	return OK()
}
