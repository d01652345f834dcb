package translator

const millisecondsInAMinute = 60 * 1000

// MinutesToMilliseconds converts wizard minutes to engine milliseconds.
func MinutesToMilliseconds(minutes int64) int64 {
	return minutes * millisecondsInAMinute
}

// MillisecondsToMinutes converts engine milliseconds to wizard minutes,
// truncating partial minutes.
func MillisecondsToMinutes(ms int64) int64 {
	return ms / millisecondsInAMinute
}
