package gtid

import "sync/atomic"

// madMaxNames is the fixed call-sign pool newly spawned polecats draw from,
// cycling back to the start (with a numeric suffix) once exhausted.
var madMaxNames = []string{
	"nux", "slit", "rictus", "furiosa", "capable", "toast", "cheedo", "dag",
	"angharad", "dementus", "scrotus", "morsov", "ace", "valkyrie", "keeper",
	"glory", "corpus", "praetorian", "buzzard", "rock-rider",
}

var namepoolCounter atomic.Uint64

// NextName returns the next call sign in the pool. After the pool has been
// exhausted once, subsequent cycles append a numeric suffix ("nux-1",
// "nux-2", ...) so names stay distinguishable across long-running towns.
func NextName() string {
	n := namepoolCounter.Add(1) - 1
	idx := int(n) % len(madMaxNames)
	cycle := int(n) / len(madMaxNames)
	if cycle == 0 {
		return madMaxNames[idx]
	}
	return madMaxNames[idx] + suffix(cycle)
}

func suffix(cycle int) string {
	digits := []byte{}
	for cycle > 0 {
		digits = append([]byte{byte('0' + cycle%10)}, digits...)
		cycle /= 10
	}
	return "-" + string(digits)
}

// ResetNamePool resets the cycle counter to zero. Exposed for tests that
// need deterministic name sequences; production code never calls this.
func ResetNamePool() {
	namepoolCounter.Store(0)
}
