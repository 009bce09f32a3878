package keyspace

// ExpireMode selects between cron's two active-expiration cadences
// (spec.md §4.C): a bounded "fast" pass run from BeforeSleep, and a
// heavier "slow" pass run from the periodic cron tick.
type ExpireMode int

const (
	ExpireSlow ExpireMode = iota
	ExpireFast
)

const (
	sampleSize            = 20
	denseThresholdRatio   = 0.25 // keep sampling a db while >=25% of a sample was expired
	checkTimeEvery        = 16
	minOccupancyPercent   = 1 // skip a db whose expires dict is <1% occupied
	fastModeBudgetUs      = 1000
	fastModeMinGapMs      = 2
	slowModeBudgetPercent = 25 // of the cron period
)

// ActiveExpireCycle implements Redis's activeExpireCycle: for up to 16
// databases (carrying a cursor across invocations), repeatedly samples a
// handful of keys with a TTL and reaps the expired ones, continuing to
// resample a database as long as the sample looks "dense" with expired
// keys, and aborting the whole cycle once its time budget is spent.
func (k *Keyspace) ActiveExpireCycle(mode ExpireMode, cronPeriodMs int64) {
	n := len(k.dbs)
	if n == 0 {
		return
	}

	now := k.nowMs()
	var budgetUs int64
	if mode == ExpireFast {
		if now-k.lastFastMs < fastModeMinGapMs {
			return
		}
		budgetUs = fastModeBudgetUs
	} else {
		budgetUs = cronPeriodMs * 1000 * slowModeBudgetPercent / 100
	}

	start := k.nowMicro()
	iterations := 0
	idx := k.expireCursor
	checked := 0
	for checked < n && checked < 16 {
		db := k.dbs[idx%n]
		idx++
		checked++

		for {
			if db.expires.Len() == 0 {
				break
			}
			if db.expires.LoadFactorPercent() < minOccupancyPercent {
				break
			}
			sampled := db.expires.RandomEntries(sampleSize)
			if len(sampled) == 0 {
				break
			}
			expired := 0
			nowMs := k.nowMs()
			var ttlSum int64
			for _, kv := range sampled {
				iterations++
				if nowMs > kv.Val {
					db.reap(kv.Key)
					expired++
				} else {
					ttlSum += kv.Val - nowMs
				}
				if iterations%checkTimeEvery == 0 && k.nowMicro()-start > budgetUs {
					k.expireCursor = idx
					if mode == ExpireFast {
						k.lastFastMs = now
					}
					return
				}
			}
			k.recordSampleAvgTTL(ttlSum, len(sampled)-expired)
			if float64(expired)/float64(len(sampled)) < denseThresholdRatio {
				break
			}
		}
	}
	k.expireCursor = idx
	if mode == ExpireFast {
		k.lastFastMs = now
	}
}

// recordSampleAvgTTL folds one sampling pass's average remaining TTL
// (over its still-live keys) into Stats.AvgTTLMs as a 2-point running
// mean against the previous value, the smoothed estimate spec.md §4.C
// reports via INFO's avg_ttl field. A pass with nothing left to
// average (every sampled key expired) leaves the estimate untouched.
func (k *Keyspace) recordSampleAvgTTL(ttlSum int64, liveCount int) {
	if liveCount == 0 {
		return
	}
	sampleAvg := ttlSum / int64(liveCount)
	if !k.stats.haveAvg {
		k.stats.AvgTTLMs = sampleAvg
		k.stats.haveAvg = true
		return
	}
	k.stats.AvgTTLMs = (k.stats.AvgTTLMs + sampleAvg) / 2
}
