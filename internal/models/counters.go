package models

// JobCounters tracks progress of one job or migration run.
// Invariant: 0 <= Successful <= Performed <= Planned.
type JobCounters struct {
	Planned    int `json:"planned"`
	Performed  int `json:"performed"`
	Successful int `json:"successful"`
}

// Reset zeroes the counters at job start
func (c *JobCounters) Reset() {
	*c = JobCounters{}
}

// Plan fixes or grows the planned count
func (c *JobCounters) Plan(n int) {
	if n > c.Planned {
		c.Planned = n
	}
}

// Record counts one attempted target
func (c *JobCounters) Record(success bool) {
	c.Performed++
	if c.Performed > c.Planned {
		c.Planned = c.Performed
	}
	if success {
		c.Successful++
	}
}

// Valid reports whether the counter invariant holds
func (c JobCounters) Valid() bool {
	return 0 <= c.Successful && c.Successful <= c.Performed && c.Performed <= c.Planned
}
