package command

import (
	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/value"
)

func hashCellForWrite(db *keyspace.Database, key string) (*value.Cell, Reply, bool) {
	cell, ok := db.LookupForWrite(key)
	if !ok {
		cell = value.NewHash()
		db.Set(key, cell, 0)
		return cell, Reply{}, true
	}
	if cell.Kind != value.KindHash {
		return nil, errWrongType(), false
	}
	return cell, Reply{}, true
}

func cmdHSet(d *Dispatcher, c *Client, args []string) Reply {
	if len(args) < 3 || len(args)%2 != 1 {
		return errSyntax()
	}
	db := d.Keyspace.DB(c.DBIndex)
	cell, errReply, ok := hashCellForWrite(db, args[0])
	if !ok {
		return errReply
	}
	var added int64
	for i := 1; i+1 < len(args); i += 2 {
		if _, existed := cell.Hash[args[i]]; !existed {
			added++
		}
		cell.Hash[args[i]] = args[i+1]
	}
	db.Touch(args[0])
	return Integer(added)
}

func cmdHGet(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return NilBulk()
	}
	if cell.Kind != value.KindHash {
		return errWrongType()
	}
	v, ok := cell.Hash[args[1]]
	return BulkOrNil(v, ok)
}

func cmdHDel(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForWrite(args[0])
	if !ok {
		return Integer(0)
	}
	if cell.Kind != value.KindHash {
		return errWrongType()
	}
	var n int64
	for _, f := range args[1:] {
		if _, ok := cell.Hash[f]; ok {
			delete(cell.Hash, f)
			n++
		}
	}
	if len(cell.Hash) == 0 {
		db.Delete(args[0])
	} else if n > 0 {
		db.Touch(args[0])
	}
	return Integer(n)
}

func cmdHGetAll(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Array()
	}
	if cell.Kind != value.KindHash {
		return errWrongType()
	}
	out := make([]Reply, 0, len(cell.Hash)*2)
	for k, v := range cell.Hash {
		out = append(out, Bulk(k), Bulk(v))
	}
	return Array(out...)
}

func cmdHLen(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Integer(0)
	}
	if cell.Kind != value.KindHash {
		return errWrongType()
	}
	return Integer(int64(len(cell.Hash)))
}

func cmdHExists(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Integer(0)
	}
	if cell.Kind != value.KindHash {
		return errWrongType()
	}
	if _, ok := cell.Hash[args[1]]; ok {
		return Integer(1)
	}
	return Integer(0)
}
