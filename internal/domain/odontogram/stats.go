package odontogram

// OtherBucket collects teeth whose condition code is not in the catalog.
const OtherBucket Condition = "other"

// DefaultSummaryConditions are the buckets shown on the dashboard.
var DefaultSummaryConditions = []Condition{ConditionHealthy, ConditionCaries, ConditionFilled, ConditionMissing}

// Counts maps a condition bucket to a number of teeth.
type Counts map[Condition]int

// Total sums every bucket.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Count returns, for each requested condition, how many teeth in the list have
// that tooth-level condition. Absent teeth count as healthy. With no
// conditions given, DefaultSummaryConditions are used.
func Count(c *Chart, teeth []int, conds ...Condition) Counts {
	if len(conds) == 0 {
		conds = DefaultSummaryConditions
	}
	out := make(Counts, len(conds))
	for _, cond := range conds {
		out[cond] = 0
	}
	for _, id := range teeth {
		cond := ConditionHealthy
		if r, ok := c.teeth[id]; ok {
			cond = r.Condition
		}
		if _, want := out[cond]; want {
			out[cond]++
		}
	}
	return out
}

// Summarize counts every catalog condition over the chart's own dentition and
// puts unknown codes in OtherBucket, so the total always equals the size of
// the tooth list.
func Summarize(c *Chart) Counts {
	teeth := Teeth(c.Dentition)
	out := make(Counts, len(conditions)+1)
	for _, info := range conditions {
		out[info.Code] = 0
	}
	out[OtherBucket] = 0
	for _, id := range teeth {
		cond := ConditionHealthy
		if r, ok := c.teeth[id]; ok {
			cond = r.Condition
		}
		if cond.Known() {
			out[cond]++
		} else {
			out[OtherBucket]++
		}
	}
	return out
}
