package permissions

import (
	"testing"
	"time"
)

func TestResolvePrecedence(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		grants []Grant
		want   bool
	}{
		{
			name:   "no grants means no permission",
			grants: nil,
			want:   false,
		},
		{
			name: "single positive grant",
			grants: []Grant{
				{TypeID: 1, Granted: true, CreatedAt: base},
			},
			want: true,
		},
		{
			name: "user level denial beats group grant",
			grants: []Grant{
				{TypeID: 5, Granted: true, CreatedAt: base},
				{UserLevel: true, TypeID: 1, Granted: false, CreatedAt: base},
			},
			want: false,
		},
		{
			name: "user level grant beats group denial",
			grants: []Grant{
				{TypeID: 5, Granted: false, CreatedAt: base.Add(time.Hour)},
				{UserLevel: true, TypeID: 1, Granted: true, CreatedAt: base},
			},
			want: true,
		},
		{
			name: "higher type id wins within a level",
			grants: []Grant{
				{TypeID: 1, Granted: true, CreatedAt: base.Add(time.Hour)},
				{TypeID: 3, Granted: false, CreatedAt: base},
			},
			want: false,
		},
		{
			name: "newer grant wins on equal level and type",
			grants: []Grant{
				{TypeID: 2, Granted: false, CreatedAt: base},
				{TypeID: 2, Granted: true, CreatedAt: base.Add(time.Minute)},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.grants); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Resolve must not reorder the caller's slice.
func TestResolveLeavesInputUntouched(t *testing.T) {
	base := time.Now()
	grants := []Grant{
		{TypeID: 1, Granted: true, CreatedAt: base},
		{UserLevel: true, TypeID: 9, Granted: false, CreatedAt: base},
	}

	Resolve(grants)

	if grants[0].UserLevel || !grants[1].UserLevel {
		t.Error("Resolve() reordered the input slice")
	}
}

func TestExpandClosure(t *testing.T) {
	parent := func(id int64) *int64 { return &id }

	// 1 -> 2 -> 3, 4 standalone
	parents := map[int64]*int64{
		1: parent(2),
		2: parent(3),
		3: nil,
		4: nil,
	}

	got := ExpandClosure([]int64{1, 4}, parents)
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("ExpandClosure() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExpandClosure() = %v, want %v", got, want)
		}
	}
}

func TestExpandClosureHandlesCycles(t *testing.T) {
	parent := func(id int64) *int64 { return &id }

	parents := map[int64]*int64{
		1: parent(2),
		2: parent(1),
	}

	got := ExpandClosure([]int64{1}, parents)
	if len(got) != 2 {
		t.Fatalf("ExpandClosure() on a cycle = %v, want both groups once", got)
	}
}

func TestExpandClosureDedupesSharedParents(t *testing.T) {
	parent := func(id int64) *int64 { return &id }

	// Both 1 and 2 inherit from 3.
	parents := map[int64]*int64{
		1: parent(3),
		2: parent(3),
		3: nil,
	}

	got := ExpandClosure([]int64{1, 2}, parents)
	if len(got) != 3 {
		t.Fatalf("ExpandClosure() = %v, want 3 unique groups", got)
	}
}
