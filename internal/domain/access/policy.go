// Package access holds the two gatekeepers over form state: the static
// role→section permission table and the 24-hour discharge lock.
package access

// Role is a staff specialty as stored on the profile.
type Role string

const (
	RoleAdministrador  Role = "Administrador"
	RoleAdministrativo Role = "Administrativo"
	RoleEnfermero      Role = "Enfermero"
	RoleAnestesista    Role = "Anestesista"
	RoleMedico         Role = "Médico"
)

// Section tags a group of form controls with the specialty that owns it.
type Section string

const (
	SectionAdministrativo Section = "administrativo"
	SectionEnfermero      Section = "enfermero"
	SectionAnestesista    Section = "anestesista"
	SectionMedico         Section = "medico"
)

// ValidRole reports whether r is one of the known specialties.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdministrador, RoleAdministrativo, RoleEnfermero, RoleAnestesista, RoleMedico:
		return true
	}
	return false
}

// rolePermissions maps each specialty to the section tags it may edit.
// RoleAdministrador is not listed: it bypasses the table entirely.
var rolePermissions = map[Role]map[Section]bool{
	RoleAdministrativo: {SectionAdministrativo: true},
	RoleEnfermero:      {SectionEnfermero: true},
	RoleAnestesista:    {SectionAnestesista: true},
	RoleMedico:         {SectionMedico: true},
}

// IsEditable reports whether a user with the given role may edit controls
// tagged with the given section. Unknown roles get an empty permission set,
// so everything reads as locked rather than open.
func IsEditable(role Role, section Section) bool {
	if role == RoleAdministrador {
		return true
	}
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[section]
}

// EditableSections returns the section tags the role may edit, for the
// client-side control-disabling read model.
func EditableSections(role Role) []Section {
	all := []Section{SectionAdministrativo, SectionEnfermero, SectionAnestesista, SectionMedico}
	if role == RoleAdministrador {
		return all
	}
	var out []Section
	for _, s := range all {
		if IsEditable(role, s) {
			out = append(out, s)
		}
	}
	return out
}
