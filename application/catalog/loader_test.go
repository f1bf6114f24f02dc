package catalog

import (
	"errors"
	"testing"

	"outbreak/application/domain"
)

func TestLoader_ControlMeasures(t *testing.T) {
	l := NewLoader("testdata")

	cms, err := l.ControlMeasures(1)
	if err != nil {
		t.Fatalf("ControlMeasures returned error: %v", err)
	}

	lockdown, ok := cms["lockdown"]
	if !ok {
		t.Fatalf("lockdown not found: %v", cms)
	}
	if lockdown.MessUpChance != 0.1 {
		t.Errorf("mess_up_chance = %g, want 0.1", lockdown.MessUpChance)
	}
	level2, ok := lockdown.Levels[2]
	if !ok {
		t.Fatalf("lockdown level 2 missing: %v", lockdown.Levels)
	}
	if level2.Cost != 200 {
		t.Errorf("cost = %d, want 200", level2.Cost)
	}
	if level2.ParamsDelta != (domain.Delta{-0.5, 0.2, 0, -0.01}) {
		t.Errorf("unexpected delta: %+v", level2.ParamsDelta)
	}
}

func TestLoader_Events(t *testing.T) {
	l := NewLoader("testdata")

	events, err := l.Events(1)
	if err != nil {
		t.Fatalf("Events returned error: %v", err)
	}
	ev, ok := events[1]
	if !ok {
		t.Fatalf("event 1 not found: %v", events)
	}
	if ev.Reward != 300 {
		t.Errorf("reward = %d, want 300", ev.Reward)
	}
	if ev.Name == "" {
		t.Errorf("event name empty")
	}
}

func TestLoader_SeedAndStart(t *testing.T) {
	l := NewLoader("testdata")

	seed, err := l.Seed(1)
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if seed.NumSections != 1 || len(seed.SectionData) != 1 {
		t.Fatalf("unexpected seed shape: %+v", seed)
	}
	if seed.SectionData[0].Population != 5000 {
		t.Errorf("population = %g, want 5000", seed.SectionData[0].Population)
	}

	start, err := l.StartParams(1)
	if err != nil {
		t.Fatalf("StartParams returned error: %v", err)
	}
	params, ok := start.Params[0]
	if !ok {
		t.Fatalf("region 0 start params missing: %+v", start)
	}
	if params.IdealReproductionNumber != 2.0 {
		t.Errorf("ideal_reproduction_number = %g, want 2.0", params.IdealReproductionNumber)
	}
}

func TestLoader_MissingLevel(t *testing.T) {
	l := NewLoader("testdata")

	if _, err := l.ControlMeasures(99); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestLoader_CachesParsedCatalog(t *testing.T) {
	l := NewLoader("testdata")

	first, err := l.Events(1)
	if err != nil {
		t.Fatalf("Events returned error: %v", err)
	}
	second, err := l.Events(1)
	if err != nil {
		t.Fatalf("Events returned error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("cache returned different catalog: %d vs %d", len(first), len(second))
	}
	l.Invalidate()
	third, err := l.Events(1)
	if err != nil {
		t.Fatalf("Events after Invalidate returned error: %v", err)
	}
	if len(third) != len(first) {
		t.Fatalf("reload differs: %d vs %d", len(third), len(first))
	}
}
