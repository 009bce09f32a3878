package command

import (
	"strconv"
	"time"
)

func nowMs() int64 { return time.Now().UnixMilli() }

func cmdDel(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	var n int64
	for _, k := range args {
		if db.Delete(k) {
			n++
		}
	}
	return Integer(n)
}

func cmdExists(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	var n int64
	for _, k := range args {
		if db.Exists(k) {
			n++
		}
	}
	return Integer(n)
}

func expireGeneric(d *Dispatcher, c *Client, args []string, unitMs int64) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return errNotInteger()
	}
	if _, ok := db.LookupForRead(args[0]); !ok {
		return Integer(0)
	}
	absMs := nowMs() + n*unitMs
	db.ExpireAt(args[0], absMs)
	d.QueuePropagation(c.DBIndex, "PEXPIREAT", []string{args[0], strconv.FormatInt(absMs, 10)})
	return Integer(1)
}

func cmdExpire(d *Dispatcher, c *Client, args []string) Reply  { return expireGeneric(d, c, args, 1000) }
func cmdPExpire(d *Dispatcher, c *Client, args []string) Reply { return expireGeneric(d, c, args, 1) }

func cmdTTL(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	ms := db.TTLMillis(args[0])
	if ms < 0 {
		return Integer(ms)
	}
	return Integer((ms + 999) / 1000)
}

func cmdPTTL(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	return Integer(db.TTLMillis(args[0]))
}

func cmdPersist(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	if db.Persist(args[0]) {
		return Integer(1)
	}
	return Integer(0)
}

func cmdType(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return Simple("none")
	}
	return Simple(cell.TypeName())
}

func cmdKeys(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	return StringArray(db.Keys(args[0]))
}

func cmdScan(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cursor, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errNotInteger()
	}
	count := 10
	for i := 1; i+1 < len(args); i += 2 {
		if args[i] == "COUNT" || args[i] == "count" {
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				count = n
			}
		}
	}
	keys, next := db.Scan(cursor, count)
	return Array(Bulk(strconv.FormatUint(next, 10)), StringArray(keys))
}

func cmdRandomKey(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	k, ok := db.RandomKey()
	return BulkOrNil(k, ok)
}

func cmdRename(d *Dispatcher, c *Client, args []string) Reply {
	db := d.Keyspace.DB(c.DBIndex)
	cell, ok := db.LookupForRead(args[0])
	if !ok {
		return errNoSuchKey()
	}
	var expireAt int64
	if at, has := db.ExpireAtRaw(args[0]); has {
		expireAt = at
	}
	db.Delete(args[0])
	db.Set(args[1], cell, expireAt)
	return OK()
}

func cmdFlushDB(d *Dispatcher, c *Client, args []string) Reply {
	d.Keyspace.DB(c.DBIndex).FlushDB()
	return OK()
}

func cmdFlushAll(d *Dispatcher, c *Client, args []string) Reply {
	for i := 0; i < d.Keyspace.NumDBs(); i++ {
		d.Keyspace.DB(i).FlushDB()
	}
	return OK()
}

func cmdDBSize(d *Dispatcher, c *Client, args []string) Reply {
	return Integer(int64(d.Keyspace.DB(c.DBIndex).Size()))
}
