package analysis

import (
	"testing"
	"time"
)

func TestFindDailyDrain_DominantDrain(t *testing.T) {
	d := NewDrainDetector(DefaultParams())

	ev := d.FindDailyDrain(seriesOf("c1", scenarioC), testDay)
	if ev == nil {
		t.Fatal("FindDailyDrain returned nil, want a drain")
	}

	assertApprox(t, "DrainAmount", ev.DrainAmount, 40)
	assertApprox(t, "DurationMinutes", ev.DurationMinutes, 30)
	assertApprox(t, "StartLevel", ev.StartLevel, 80)
	assertApprox(t, "EndLevel", ev.EndLevel, 40)

	if !ev.StartTime.Equal(dayStart.Add(10 * time.Minute)) {
		t.Errorf("StartTime = %v, want 00:10", ev.StartTime)
	}
	if ev.CauldronID != "c1" || ev.Day != testDay {
		t.Errorf("event identity = %s/%s, want c1/%s", ev.CauldronID, ev.Day, testDay)
	}
}

func TestFindDailyDrain_NoDrain(t *testing.T) {
	d := NewDrainDetector(DefaultParams())

	rising := make([]point, 12)
	for i := range rising {
		rising[i] = point{i * 5, float64(10 + i)}
	}

	tests := []struct {
		name string
		pts  []point
	}{
		{"insufficient samples", []point{{0, 80}, {5, 60}, {10, 40}}},
		{"monotonic fill", rising},
		{
			"valley before peak",
			[]point{{0, 50}, {5, 20}, {10, 25}, {15, 30}, {20, 35}, {25, 40}, {30, 45}, {35, 50}, {40, 60}, {45, 90}},
		},
		{
			"drop just under significance threshold",
			[]point{{0, 50}, {5, 55}, {10, 60}, {15, 55}, {20, 50}, {25, 45.5}, {30, 46}, {35, 47}, {40, 48}, {45, 49}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ev := d.FindDailyDrain(seriesOf("c1", tt.pts), testDay); ev != nil {
				t.Errorf("FindDailyDrain = %+v, want nil", *ev)
			}
		})
	}
}

func TestFindDailyDrain_DropAtThreshold(t *testing.T) {
	d := NewDrainDetector(DefaultParams())

	// 55 -> 40 over 12 samples: exactly the significance threshold.
	pts := []point{
		{0, 50}, {5, 52}, {10, 55}, {15, 50}, {20, 45}, {25, 40},
		{30, 41}, {35, 42}, {40, 43}, {45, 44}, {50, 45}, {55, 46},
	}

	ev := d.FindDailyDrain(seriesOf("c1", pts), testDay)
	if ev == nil {
		t.Fatal("FindDailyDrain returned nil for a drop equal to the threshold")
	}
	assertApprox(t, "DrainAmount", ev.DrainAmount, 15)
	assertApprox(t, "DurationMinutes", ev.DurationMinutes, 15)
}

func TestFindDailyDrain_UnknownSeries(t *testing.T) {
	d := NewDrainDetector(DefaultParams())
	if ev := d.FindDailyDrain(nil, testDay); ev != nil {
		t.Errorf("FindDailyDrain(nil) = %+v, want nil", *ev)
	}
	if ev := d.FindDailyDrain(seriesOf("c1", scenarioC), "2025-02-01"); ev != nil {
		t.Errorf("FindDailyDrain(other day) = %+v, want nil", *ev)
	}
}

func TestFindLocalDrains(t *testing.T) {
	p := DefaultParams()
	p.Strategy = StrategyLocal
	d := NewDrainDetector(p)

	drains := d.FindLocalDrains(seriesOf("c1", twoDrains), testDay)
	if len(drains) != 2 {
		t.Fatalf("FindLocalDrains found %d drains, want 2: %+v", len(drains), drains)
	}

	assertApprox(t, "first DrainAmount", drains[0].DrainAmount, 32)
	assertApprox(t, "first DurationMinutes", drains[0].DurationMinutes, 10)
	assertApprox(t, "second DrainAmount", drains[1].DrainAmount, 40)
	assertApprox(t, "second DurationMinutes", drains[1].DurationMinutes, 10)

	if !drains[0].EndTime.Before(drains[1].StartTime) {
		t.Error("drains should be ordered and non-overlapping")
	}
}

func TestFindLocalDrains_SmallDipsIgnored(t *testing.T) {
	p := DefaultParams()
	p.Strategy = StrategyLocal
	d := NewDrainDetector(p)

	pts := []point{{0, 50}, {5, 45}, {10, 50}, {15, 55}, {20, 40}, {25, 50}, {30, 55}, {35, 60}, {40, 50}, {45, 60}}
	if drains := d.FindLocalDrains(seriesOf("c1", pts), testDay); len(drains) != 0 {
		t.Errorf("FindLocalDrains = %+v, want none", drains)
	}
}

func TestFindDrains_Dispatch(t *testing.T) {
	daily := NewDrainDetector(DefaultParams())
	if got := daily.FindDrains(seriesOf("c1", twoDrains), testDay); len(got) != 1 {
		t.Errorf("daily FindDrains = %d drains, want 1", len(got))
	}

	p := DefaultParams()
	p.Strategy = StrategyLocal
	local := NewDrainDetector(p)
	if got := local.FindDrains(seriesOf("c1", twoDrains), testDay); len(got) != 2 {
		t.Errorf("local FindDrains = %d drains, want 2", len(got))
	}
}

func TestExpectedCollection(t *testing.T) {
	d := NewDrainDetector(DefaultParams())
	ev := d.FindDailyDrain(seriesOf("c1", scenarioC), testDay)
	if ev == nil {
		t.Fatal("expected a drain")
	}

	assertApprox(t, "ExpectedCollection", ExpectedCollection(ev, 0.1), 43)
	assertApprox(t, "ExpectedCollection zero rate", ExpectedCollection(ev, 0), 40)
	assertApprox(t, "ExpectedCollection nil", ExpectedCollection(nil, 0.1), 0)
}
