package health

import "testing"

func TestComputeLevelBoundaries(t *testing.T) {
	// PLANTS_NUMBER 阈值 [1,3,5,10,15,20,30,40,50]
	cases := []struct {
		value    int
		expected int
	}{
		{0, 1},
		{1, 2},
		{2, 2},
		{3, 3},
		{4, 3},
		{5, 4},
		{10, 5},
		{49, 9},
		{50, 10},
		{51, 10},
		{1000, 10},
	}

	for _, tc := range cases {
		if got := ComputeLevel(AchievementPlantsNumber, tc.value); got != tc.expected {
			t.Fatalf("value=%d: expected level %d, got %d", tc.value, tc.expected, got)
		}
	}
}

func TestComputeLevelNonDecreasing(t *testing.T) {
	for _, typ := range AchievementTypes() {
		prev := 0
		for v := 0; v <= 60; v++ {
			level := ComputeLevel(typ, v)
			if level < prev {
				t.Fatalf("%s: level decreased from %d to %d at value %d", typ, prev, level, v)
			}
			if level < 1 || level > MaxAchievementLevel {
				t.Fatalf("%s: level %d out of range at value %d", typ, level, v)
			}
			prev = level
		}
	}
}

func TestComputeLevelPerType(t *testing.T) {
	// FRIENDS_NUMBER 的高段阈值更密集
	if got := ComputeLevel(AchievementFriendsNumber, 25); got != 8 {
		t.Fatalf("expected friends level 8 at value 25, got %d", got)
	}
	if got := ComputeLevel(AchievementHealthyStreak, 7); got != 5 {
		t.Fatalf("expected streak level 5 at value 7, got %d", got)
	}
}

func TestParseAchievementType(t *testing.T) {
	if _, ok := ParseAchievementType("PLANTS_NUMBER"); !ok {
		t.Fatal("expected PLANTS_NUMBER to parse")
	}
	if _, ok := ParseAchievementType("TALLEST_SUNFLOWER"); ok {
		t.Fatal("expected unknown achievement type to be rejected")
	}
}
