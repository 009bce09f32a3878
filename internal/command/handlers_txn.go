package command

func cmdMulti(d *Dispatcher, c *Client, args []string) Reply {
	if !c.Txn.MultiStart() {
		return Err("ERR MULTI calls can not be nested")
	}
	return OK()
}

func cmdDiscard(d *Dispatcher, c *Client, args []string) Reply {
	if !c.Txn.InMulti() {
		return Err("ERR DISCARD without MULTI")
	}
	c.Txn.Discard()
	return OK()
}

func cmdWatch(d *Dispatcher, c *Client, args []string) Reply {
	if c.Txn.InMulti() {
		return errWatchInsideMulti()
	}
	for _, k := range args {
		c.Txn.Watch(c.DBIndex, k)
	}
	return OK()
}

func cmdUnwatch(d *Dispatcher, c *Client, args []string) Reply {
	c.Txn.Unwatch()
	return OK()
}

func cmdExec(d *Dispatcher, c *Client, args []string) Reply {
	if !c.Txn.InMulti() {
		return Err("ERR EXEC without MULTI")
	}
	res := c.Txn.Exec()
	if res.QueueErr {
		return errExecAbort()
	}
	if res.Aborted {
		return NilArray()
	}

	hasWrite := false
	for _, q := range res.Queue {
		if spec := d.Table[q.Name]; spec != nil && spec.Write {
			hasWrite = true
			break
		}
	}
	if hasWrite && d.Sink != nil {
		d.Sink.Propagate(c.DBIndex, "MULTI", nil)
	}

	out := make([]Reply, len(res.Queue))
	for i, q := range res.Queue {
		spec := d.Table[q.Name]
		out[i] = d.Call(c, spec, q.Name, q.Args)
	}

	if hasWrite && d.Sink != nil {
		d.Sink.Propagate(c.DBIndex, "EXEC", nil)
	}
	return Array(out...)
}
