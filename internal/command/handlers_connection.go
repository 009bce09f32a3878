package command

import "strconv"

func cmdPing(d *Dispatcher, c *Client, args []string) Reply {
	if len(args) == 0 {
		return Simple("PONG")
	}
	return Bulk(args[0])
}

func cmdEcho(d *Dispatcher, c *Client, args []string) Reply {
	return Bulk(args[0])
}

func cmdSelect(d *Dispatcher, c *Client, args []string) Reply {
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return errNotInteger()
	}
	if idx < 0 || idx >= d.Keyspace.NumDBs() {
		return Err("ERR DB index is out of range")
	}
	c.DBIndex = idx
	return OK()
}

func cmdAuth(d *Dispatcher, c *Client, args []string) Reply {
	if d.RequirePassword == "" {
		return Err("ERR Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?")
	}
	if args[0] != d.RequirePassword {
		return Err("WRONGPASS invalid username-password pair or user is disabled.")
	}
	c.Authenticated = true
	return OK()
}
