package calculator

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
)

func fv(v float64) *float64 { return &v }

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		total        float64
		participants []models.Participant
		mode         models.SplitMode
		items        []models.ReceiptItem
		wantErr      bool
		validateFunc func(t *testing.T, r *Result)
	}{
		{
			name:  "equally between three",
			total: 100.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice"},
				{ID: "p2", Name: "Bob"},
				{ID: "p3", Name: "Cara"},
			},
			mode: models.SplitEqually,
			validateFunc: func(t *testing.T, r *Result) {
				// 100 / 3 = 33.333... each; shares sum back to 100
				for _, id := range []string{"p1", "p2", "p3"} {
					if math.Abs(r.Amounts[id]-33.3333) > 0.01 {
						t.Errorf("%s amount = %v, want 33.33", id, r.Amounts[id])
					}
				}
				if !r.Valid {
					t.Errorf("Valid = false, want true (remainder %v)", r.Remainder)
				}
				if math.Abs(r.Remainder) > 0.001 {
					t.Errorf("Remainder = %v, want ~0", r.Remainder)
				}
			},
		},
		{
			name:  "equally skips blank placeholder rows",
			total: 50.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice"},
				{ID: "p2", Name: ""},
			},
			mode: models.SplitEqually,
			validateFunc: func(t *testing.T, r *Result) {
				if math.Abs(r.Amounts["p1"]-50.0) > 0.01 {
					t.Errorf("p1 amount = %v, want 50.0", r.Amounts["p1"])
				}
				if r.Amounts["p2"] != 0 {
					t.Errorf("p2 amount = %v, want 0", r.Amounts["p2"])
				}
			},
		},
		{
			name:  "by amount reconciles exactly",
			total: 100.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice", SplitValue: fv(60.0)},
				{ID: "p2", Name: "Bob", SplitValue: fv(40.0)},
			},
			mode: models.SplitByAmount,
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Valid {
					t.Errorf("Valid = false, want true")
				}
				if math.Abs(r.Amounts["p1"]-60.0) > 0.01 {
					t.Errorf("p1 amount = %v, want 60.0", r.Amounts["p1"])
				}
			},
		},
		{
			name:  "by amount one cent short",
			total: 100.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice", SplitValue: fv(60.0)},
				{ID: "p2", Name: "Bob", SplitValue: fv(39.99)},
			},
			mode: models.SplitByAmount,
			validateFunc: func(t *testing.T, r *Result) {
				if r.Valid {
					t.Errorf("Valid = true, want false")
				}
				if math.Abs(r.Remainder-0.01) > 0.001 {
					t.Errorf("Remainder = %v, want 0.01", r.Remainder)
				}
				if r.Remainder <= 0 {
					t.Errorf("Remainder = %v, want positive (allocations fall short)", r.Remainder)
				}
			},
		},
		{
			name:  "by amount overshoot keeps sign",
			total: 100.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice", SplitValue: fv(60.0)},
				{ID: "p2", Name: "Bob", SplitValue: fv(40.05)},
			},
			mode: models.SplitByAmount,
			validateFunc: func(t *testing.T, r *Result) {
				if r.Valid {
					t.Errorf("Valid = true, want false")
				}
				if r.Remainder >= 0 {
					t.Errorf("Remainder = %v, want negative (allocations overshoot)", r.Remainder)
				}
			},
		},
		{
			name:  "by percentage summing to 100",
			total: 200.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice", SplitValue: fv(50.0)},
				{ID: "p2", Name: "Bob", SplitValue: fv(30.0)},
				{ID: "p3", Name: "Cara", SplitValue: fv(20.0)},
			},
			mode: models.SplitByPercentage,
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Valid {
					t.Errorf("Valid = false, want true")
				}
				if math.Abs(r.Amounts["p1"]-100.0) > 0.01 {
					t.Errorf("p1 amount = %v, want 100.0", r.Amounts["p1"])
				}
				if math.Abs(r.Amounts["p3"]-40.0) > 0.01 {
					t.Errorf("p3 amount = %v, want 40.0", r.Amounts["p3"])
				}
			},
		},
		{
			name:  "by percentage summing to 99",
			total: 200.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice", SplitValue: fv(50.0)},
				{ID: "p2", Name: "Bob", SplitValue: fv(30.0)},
				{ID: "p3", Name: "Cara", SplitValue: fv(19.0)},
			},
			mode: models.SplitByPercentage,
			validateFunc: func(t *testing.T, r *Result) {
				if r.Valid {
					t.Errorf("Valid = true, want false")
				}
				// 99% of 200 allocated, so 2.00 remains
				if math.Abs(r.Remainder-2.0) > 0.01 {
					t.Errorf("Remainder = %v, want 2.0", r.Remainder)
				}
				if math.Abs(r.PercentSum-99.0) > 0.001 {
					t.Errorf("PercentSum = %v, want 99.0", r.PercentSum)
				}
			},
		},
		{
			name:  "by percentage with zero total still checks the sum",
			total: 0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice", SplitValue: fv(50.0)},
				{ID: "p2", Name: "Bob", SplitValue: fv(30.0)},
			},
			mode: models.SplitByPercentage,
			validateFunc: func(t *testing.T, r *Result) {
				if r.Valid {
					t.Errorf("Valid = true, want false (percentages sum to 80)")
				}
			},
		},
		{
			name:  "by item with every item claimed",
			total: 30.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice"},
				{ID: "p2", Name: "Bob"},
			},
			mode: models.SplitByItem,
			items: []models.ReceiptItem{
				{ID: "i1", Name: "Pizza", Price: 20.0, AssignedTo: []string{"p1", "p2"}},
				{ID: "i2", Name: "Salad", Price: 10.0, AssignedTo: []string{"p1"}},
			},
			validateFunc: func(t *testing.T, r *Result) {
				// Alice: 10 + 10 = 20, Bob: 10
				if math.Abs(r.Amounts["p1"]-20.0) > 0.01 {
					t.Errorf("p1 amount = %v, want 20.0", r.Amounts["p1"])
				}
				if math.Abs(r.Amounts["p2"]-10.0) > 0.01 {
					t.Errorf("p2 amount = %v, want 10.0", r.Amounts["p2"])
				}
				if !r.Valid {
					t.Errorf("Valid = false, want true")
				}
			},
		},
		{
			name:  "by item with an unclaimed item",
			total: 30.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice"},
			},
			mode: models.SplitByItem,
			items: []models.ReceiptItem{
				{ID: "i1", Name: "Pizza", Price: 20.0, AssignedTo: []string{"p1"}},
				{ID: "i2", Name: "Salad", Price: 10.0},
			},
			validateFunc: func(t *testing.T, r *Result) {
				if r.Valid {
					t.Errorf("Valid = true, want false")
				}
				if r.UnassignedItems != 1 {
					t.Errorf("UnassignedItems = %d, want 1", r.UnassignedItems)
				}
				// The claimed pizza still allocates
				if math.Abs(r.Amounts["p1"]-20.0) > 0.01 {
					t.Errorf("p1 amount = %v, want 20.0", r.Amounts["p1"])
				}
			},
		},
		{
			name:  "by item skips unknown assignee ids",
			total: 10.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice"},
			},
			mode: models.SplitByItem,
			items: []models.ReceiptItem{
				{ID: "i1", Name: "Pizza", Price: 10.0, AssignedTo: []string{"p1", "ghost"}},
			},
			validateFunc: func(t *testing.T, r *Result) {
				if math.Abs(r.Amounts["p1"]-5.0) > 0.01 {
					t.Errorf("p1 amount = %v, want 5.0", r.Amounts["p1"])
				}
				if _, ok := r.Amounts["ghost"]; ok {
					t.Errorf("ghost should not appear in amounts")
				}
			},
		},
		{
			name:         "positive total with no participants should error",
			total:        10.0,
			participants: []models.Participant{},
			mode:         models.SplitEqually,
			wantErr:      true,
		},
		{
			name:  "positive total with only blank rows should error",
			total: 10.0,
			participants: []models.Participant{
				{ID: "p1", Name: ""},
			},
			mode:    models.SplitEqually,
			wantErr: true,
		},
		{
			name:         "zero total with no participants is fine",
			total:        0,
			participants: []models.Participant{},
			mode:         models.SplitEqually,
			validateFunc: func(t *testing.T, r *Result) {
				if !r.Valid {
					t.Errorf("Valid = false, want true")
				}
				if r.Total != 0 {
					t.Errorf("Total = %v, want 0", r.Total)
				}
			},
		},
		{
			name:  "unknown mode should error",
			total: 10.0,
			participants: []models.Participant{
				{ID: "p1", Name: "Alice"},
			},
			mode:    models.SplitMode("thirds"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Compute(tt.total, tt.participants, tt.mode, tt.items)
			if (err != nil) != tt.wantErr {
				t.Errorf("Compute() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.validateFunc != nil {
				tt.validateFunc(t, r)
			}
		})
	}
}

func TestComputeIsPure(t *testing.T) {
	participants := []models.Participant{
		{ID: "p1", Name: "Alice", SplitValue: fv(33.4)},
		{ID: "p2", Name: "Bob", SplitValue: fv(66.6)},
	}

	first, err := Compute(100.0, participants, models.SplitByPercentage, nil)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	second, err := Compute(100.0, participants, models.SplitByPercentage, nil)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two identical calls disagree: %+v vs %+v", first, second)
	}
	if participants[0].SplitValue == nil || *participants[0].SplitValue != 33.4 {
		t.Error("Compute() mutated its input")
	}
}

func TestComputeAllocationError(t *testing.T) {
	_, err := Compute(25.0, nil, models.SplitEqually, nil)
	if err == nil {
		t.Fatal("Compute() error = nil, want AllocationError")
	}
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) {
		t.Errorf("error = %T, want *AllocationError", err)
	}
}

func TestDiscrepancyMessage(t *testing.T) {
	tests := []struct {
		name string
		mode models.SplitMode
		r    *Result
		want string
	}{
		{
			name: "valid result yields no message",
			mode: models.SplitByAmount,
			r:    &Result{Valid: true},
			want: "",
		},
		{
			name: "amount off by one cent",
			mode: models.SplitByAmount,
			r:    &Result{Total: 99.99, Remainder: 0.01},
			want: "$0.01",
		},
		{
			name: "amount overshoot reports absolute value",
			mode: models.SplitByAmount,
			r:    &Result{Total: 100.05, Remainder: -0.05},
			want: "$0.05",
		},
		{
			name: "percentage names the shortfall",
			mode: models.SplitByPercentage,
			r:    &Result{Total: 198.0, Remainder: 2.0, PercentSum: 99.0},
			want: "99.00%",
		},
		{
			name: "item mode counts unassigned items",
			mode: models.SplitByItem,
			r:    &Result{Remainder: 10.0, UnassignedItems: 1},
			want: "1 item",
		},
		{
			name: "item mode plural",
			mode: models.SplitByItem,
			r:    &Result{Remainder: 15.0, UnassignedItems: 2},
			want: "2 items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscrepancyMessage(tt.mode, tt.r)
			if tt.want == "" {
				if got != "" {
					t.Errorf("DiscrepancyMessage() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("DiscrepancyMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
