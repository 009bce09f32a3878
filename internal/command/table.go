package command

// BuildTable constructs the static command table, the Go analogue of
// the source's redisCommandTable array.
func BuildTable() map[string]*Spec {
	specs := []*Spec{
		// Connection
		{Name: "PING", Handler: cmdPing, Arity: -1, NoMultiQueue: true},
		{Name: "ECHO", Handler: cmdEcho, Arity: 2},
		{Name: "SELECT", Handler: cmdSelect, Arity: 2, NoMultiQueue: true},
		{Name: "AUTH", Handler: cmdAuth, Arity: 2, NoMultiQueue: true},

		// Generic
		{Name: "DEL", Handler: cmdDel, Arity: -2, Write: true, FirstKey: 1, LastKey: -1, KeyStep: 1},
		{Name: "EXISTS", Handler: cmdExists, Arity: -2, FirstKey: 1, LastKey: -1, KeyStep: 1},
		{Name: "EXPIRE", Handler: cmdExpire, Arity: 3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "PEXPIRE", Handler: cmdPExpire, Arity: 3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "TTL", Handler: cmdTTL, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "PTTL", Handler: cmdPTTL, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "PERSIST", Handler: cmdPersist, Arity: 2, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "TYPE", Handler: cmdType, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "KEYS", Handler: cmdKeys, Arity: 2},
		{Name: "SCAN", Handler: cmdScan, Arity: -2},
		{Name: "RANDOMKEY", Handler: cmdRandomKey, Arity: 1},
		{Name: "RENAME", Handler: cmdRename, Arity: 3, Write: true, FirstKey: 1, LastKey: 2, KeyStep: 1},
		{Name: "FLUSHDB", Handler: cmdFlushDB, Arity: 1, Write: true},
		{Name: "FLUSHALL", Handler: cmdFlushAll, Arity: 1, Write: true},
		{Name: "DBSIZE", Handler: cmdDBSize, Arity: 1},

		// String
		{Name: "SET", Handler: cmdSet, Arity: -3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "GET", Handler: cmdGet, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "GETSET", Handler: cmdGetSet, Arity: 3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "APPEND", Handler: cmdAppend, Arity: 3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "STRLEN", Handler: cmdStrlen, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "INCR", Handler: cmdIncr, Arity: 2, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "DECR", Handler: cmdDecr, Arity: 2, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "INCRBY", Handler: cmdIncrBy, Arity: 3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "DECRBY", Handler: cmdDecrBy, Arity: 3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "MSET", Handler: cmdMSet, Arity: -3, Write: true, FirstKey: 1, LastKey: -1, KeyStep: 2},
		{Name: "MGET", Handler: cmdMGet, Arity: -2, FirstKey: 1, LastKey: -1, KeyStep: 1},

		// List
		{Name: "LPUSH", Handler: cmdLPush, Arity: -3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "RPUSH", Handler: cmdRPush, Arity: -3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "LPOP", Handler: cmdLPop, Arity: 2, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "RPOP", Handler: cmdRPop, Arity: 2, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "LLEN", Handler: cmdLLen, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "LRANGE", Handler: cmdLRange, Arity: 4, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "LINDEX", Handler: cmdLIndex, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "LSET", Handler: cmdLSet, Arity: 4, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},

		// Hash
		{Name: "HSET", Handler: cmdHSet, Arity: -4, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "HGET", Handler: cmdHGet, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "HDEL", Handler: cmdHDel, Arity: -3, Write: true, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "HGETALL", Handler: cmdHGetAll, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "HLEN", Handler: cmdHLen, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "HEXISTS", Handler: cmdHExists, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},

		// Transaction
		{Name: "MULTI", Handler: cmdMulti, Arity: 1, NoMultiQueue: true},
		{Name: "EXEC", Handler: cmdExec, Arity: 1, NoMultiQueue: true},
		{Name: "DISCARD", Handler: cmdDiscard, Arity: 1, NoMultiQueue: true},
		{Name: "WATCH", Handler: cmdWatch, Arity: -2, NoMultiQueue: true},
		{Name: "UNWATCH", Handler: cmdUnwatch, Arity: 1, NoMultiQueue: true},

		// Server
		{Name: "INFO", Handler: cmdInfo, Arity: -1},
		{Name: "COMMAND", Handler: cmdCommand, Arity: -1, Admin: true},
		{Name: "CONFIG", Handler: cmdConfig, Arity: -2, Admin: true},
		{Name: "DEBUG", Handler: cmdDebug, Arity: -2, Admin: true},
		{Name: "SLOWLOG", Handler: cmdSlowlog, Arity: -2, Admin: true},
		{Name: "SHUTDOWN", Handler: cmdShutdown, Arity: -1, Admin: true, NoMultiQueue: true},
	}

	table := make(map[string]*Spec, len(specs))
	for _, s := range specs {
		table[s.Name] = s
	}
	return table
}
