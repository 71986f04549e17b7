package slots_test

import (
	"testing"

	"github.com/JaimeStill/docket/internal/slots"
)

func TestTemplateOrder(t *testing.T) {
	all := slots.All()
	if len(all) != 13 {
		t.Fatalf("len(All()) = %d, want 13", len(all))
	}
	if all[0] != slots.Submitter || all[12] != slots.Director {
		t.Errorf("template bounds = %s..%s", all[0], all[12])
	}
}

func TestVisiblePattern(t *testing.T) {
	tests := []struct {
		key  slots.Key
		want string
	}{
		{slots.Submitter, "##{S1}##"},
		{slots.RelatedDepartment, "##{S3}##"},
		{slots.KHTH, "##{S4}##"},
		{slots.Deputy3, "##{S11}##"},
		{slots.Clerk, "##{S12}##"},
		{slots.Director, "##{S13}##"},
		{slots.Key("Nobody"), ""},
	}

	for _, tt := range tests {
		if got := tt.key.VisiblePattern(); got != tt.want {
			t.Errorf("%s.VisiblePattern() = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestPhaseAndKind(t *testing.T) {
	tests := []struct {
		key   slots.Key
		phase slots.Phase
		kind  slots.Kind
	}{
		{slots.DepartmentHead, slots.Region1, slots.DepartmentStaffed},
		{slots.TCKT, slots.Region2, slots.DepartmentStaffed},
		{slots.Deputy2, slots.Region3, slots.Leadership},
		{slots.Clerk, slots.ClerkPhase, slots.Registry},
		{slots.Director, slots.DirectorPhase, slots.Leadership},
	}

	for _, tt := range tests {
		if got := tt.key.Phase(); got != tt.phase {
			t.Errorf("%s.Phase() = %s, want %s", tt.key, got, tt.phase)
		}
		if got := tt.key.Kind(); got != tt.kind {
			t.Errorf("%s.Kind() = %d, want %d", tt.key, got, tt.kind)
		}
	}
}

func TestOnlyRelatedDepartmentOptional(t *testing.T) {
	for _, k := range slots.All() {
		want := k == slots.RelatedDepartment
		if k.Optional() != want {
			t.Errorf("%s.Optional() = %v, want %v", k, k.Optional(), want)
		}
	}
}

func TestParse(t *testing.T) {
	if k, ok := slots.Parse(" khth "); !ok || k != slots.KHTH {
		t.Errorf("Parse(khth) = %q, %v", k, ok)
	}
	if _, ok := slots.Parse("Treasurer"); ok {
		t.Error("Parse(Treasurer) should fail")
	}
	if !slots.TCCB.IsFunctional() || slots.Deputy1.IsFunctional() {
		t.Error("IsFunctional mismatch")
	}
}
