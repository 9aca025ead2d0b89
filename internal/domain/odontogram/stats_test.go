package odontogram

import "testing"

func TestCount_DashboardScenario(t *testing.T) {
	c := NewChart(DentitionAdult)
	teeth := Teeth(DentitionAdult)

	got := Count(c, teeth)
	want := Counts{ConditionHealthy: 32, ConditionCaries: 0, ConditionFilled: 0, ConditionMissing: 0}
	assertCounts(t, got, want)

	c.SetTooth(16, ConditionCaries, "")
	c.SetTooth(36, ConditionMissing, "")
	got = Count(c, teeth)
	want = Counts{ConditionHealthy: 30, ConditionCaries: 1, ConditionFilled: 0, ConditionMissing: 1}
	assertCounts(t, got, want)

	records := Encode(c)
	if len(records) != 2 {
		t.Fatalf("expected exactly 2 stored records, got %d", len(records))
	}
	for _, r := range records {
		if r.IsSurface() {
			t.Errorf("unexpected surface row %+v", r)
		}
	}
	if !Decode(DentitionAdult, records).Equal(c) {
		t.Error("decoding the two records did not reproduce the chart")
	}
}

func TestCount_RequestedConditionsOnly(t *testing.T) {
	c := NewChart(DentitionAdult)
	c.SetTooth(16, ConditionCrown, "")
	c.SetTooth(26, ConditionCrown, "")
	c.SetTooth(36, ConditionImplant, "")

	got := Count(c, Teeth(DentitionAdult), ConditionCrown)
	if len(got) != 1 || got[ConditionCrown] != 2 {
		t.Errorf("unexpected counts: %v", got)
	}
}

func TestCount_IgnoresTeethOutsideList(t *testing.T) {
	c := NewChart(DentitionAdult)
	c.SetTooth(55, ConditionCaries, "")
	got := Count(c, Teeth(DentitionAdult))
	if got[ConditionCaries] != 0 || got[ConditionHealthy] != 32 {
		t.Errorf("out-of-list tooth was counted: %v", got)
	}
}

func TestSummarize_TotalsMatchToothList(t *testing.T) {
	c := NewChart(DentitionPrimary)
	c.SetTooth(54, ConditionCaries, "")
	c.SetTooth(64, "sealant", "")
	c.SetTooth(16, ConditionFilled, "")

	got := Summarize(c)
	if got.Total() != 20 {
		t.Errorf("expected total 20, got %d", got.Total())
	}
	if got[OtherBucket] != 1 || got[ConditionCaries] != 1 || got[ConditionHealthy] != 18 {
		t.Errorf("unexpected summary: %v", got)
	}
	if got[ConditionFilled] != 0 {
		t.Error("adult tooth counted in a primary summary")
	}
	for _, info := range Conditions() {
		if _, ok := got[info.Code]; !ok {
			t.Errorf("summary is missing bucket %s", info.Code)
		}
	}
}

func assertCounts(t *testing.T, got, want Counts) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d buckets, got %v", len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %d, want %d", k, got[k], v)
		}
	}
}
