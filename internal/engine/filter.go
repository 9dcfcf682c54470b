package engine

// ApplySafetyWindow drops partitions newer than the manifest's
// declared-complete timestamp for the table. The producer may have started
// writing a newer partition it has not yet declared complete; reading it
// would risk a partial batch. Filtered partitions are deferred to a future
// run, not errors.
//
// Combined with the enumeration lower bound, a partition at timestamp T is
// selected iff watermark < T <= lastSuccessfulWriteTimestamp.
func ApplySafetyWindow(locations []PartitionLocation, lastSuccessfulWrite int64) (kept, deferred []PartitionLocation) {
	for _, loc := range locations {
		if loc.Timestamp <= lastSuccessfulWrite {
			kept = append(kept, loc)
		} else {
			deferred = append(deferred, loc)
		}
	}
	return kept, deferred
}
