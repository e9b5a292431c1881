package access

import "testing"

func TestIsEditable_AdminWildcard(t *testing.T) {
	for _, s := range []Section{SectionAdministrativo, SectionEnfermero, SectionAnestesista, SectionMedico} {
		if !IsEditable(RoleAdministrador, s) {
			t.Errorf("Administrador should edit section %q", s)
		}
	}
}

func TestIsEditable_OwnSectionOnly(t *testing.T) {
	cases := []struct {
		role    Role
		section Section
		want    bool
	}{
		{RoleEnfermero, SectionEnfermero, true},
		{RoleEnfermero, SectionMedico, false},
		{RoleMedico, SectionMedico, true},
		{RoleMedico, SectionEnfermero, false},
		{RoleAnestesista, SectionAnestesista, true},
		{RoleAnestesista, SectionAdministrativo, false},
		{RoleAdministrativo, SectionAdministrativo, true},
		{RoleAdministrativo, SectionAnestesista, false},
	}
	for _, tc := range cases {
		if got := IsEditable(tc.role, tc.section); got != tc.want {
			t.Errorf("IsEditable(%q, %q) = %v, want %v", tc.role, tc.section, got, tc.want)
		}
	}
}

func TestIsEditable_UnknownRoleFailsClosed(t *testing.T) {
	for _, s := range []Section{SectionAdministrativo, SectionEnfermero, SectionAnestesista, SectionMedico} {
		if IsEditable(Role("Becario"), s) {
			t.Errorf("unknown role should never edit section %q", s)
		}
	}
}

func TestEditableSections(t *testing.T) {
	if got := EditableSections(RoleAdministrador); len(got) != 4 {
		t.Errorf("expected 4 sections for Administrador, got %d", len(got))
	}
	got := EditableSections(RoleEnfermero)
	if len(got) != 1 || got[0] != SectionEnfermero {
		t.Errorf("expected [enfermero], got %v", got)
	}
	if got := EditableSections(Role("Becario")); len(got) != 0 {
		t.Errorf("expected no sections for unknown role, got %v", got)
	}
}
