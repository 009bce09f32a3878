package command

// Common error replies shared across handler files, spelled the way the
// source's addReplyError call sites are (a short code, a sentence).
func errWrongType() Reply {
	return Err("WRONGTYPE Operation against a key holding the wrong kind of value")
}

func errNotInteger() Reply {
	return Err("ERR value is not an integer or out of range")
}

func errNotFloat() Reply {
	return Err("ERR value is not a valid float")
}

func errSyntax() Reply {
	return Err("ERR syntax error")
}

func errNoSuchKey() Reply {
	return Err("ERR no such key")
}

func errExecAbort() Reply {
	return Err("EXECABORT Transaction discarded because of previous errors.")
}

func errWatchInsideMulti() Reply {
	return Err("ERR WATCH inside MULTI is not allowed")
}
