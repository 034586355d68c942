package school

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRole(t *testing.T) {
	role, err := NewRole(KindTutor, []string{"1B", "1A"}, []string{"mat"})
	require.NoError(t, err)
	assert.Equal(t, Tutor{Sections: []string{"1A", "1B"}, Courses: []string{"mat"}}, role)

	role, err = NewRole(KindPrincipal, []string{"1A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Principal{}, role)
	assert.Nil(t, Sections(role))

	_, err = NewRole("janitor", nil, nil)
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	principal := Principal{}
	tutor := Tutor{Sections: []string{"1A"}, Courses: []string{"mat"}}
	teacher := SubjectTeacher{Sections: []string{"1A", "1B"}, Courses: []string{"com"}}

	tests := []struct {
		name      string
		role      Role
		section   string
		course    string
		canView   bool
		canWrite  bool
		canClose  bool
		canReopen bool
	}{
		{name: "principal", role: principal, section: "1A", course: "mat", canView: true, canClose: true, canReopen: true},
		{name: "tutor own section and course", role: tutor, section: "1A", course: "mat", canView: true, canWrite: true, canClose: true},
		{name: "tutor other course", role: tutor, section: "1A", course: "com", canView: true, canClose: true},
		{name: "tutor other section", role: tutor, section: "1B", course: "mat"},
		{name: "teacher own section and course", role: teacher, section: "1B", course: "com", canView: true, canWrite: true},
		{name: "teacher other course", role: teacher, section: "1B", course: "mat", canView: true},
		{name: "teacher other section", role: teacher, section: "2A", course: "com"},
		{name: "no role", role: nil, section: "1A", course: "mat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canView, CanView(tt.role, tt.section), "CanView")
			assert.Equal(t, tt.canWrite, CanWriteGrades(tt.role, tt.section, tt.course), "CanWriteGrades")
			assert.Equal(t, tt.canClose, CanClose(tt.role, tt.section), "CanClose")
			assert.Equal(t, tt.canReopen, CanReopen(tt.role, tt.section), "CanReopen")
		})
	}
}

func TestUser_Profile(t *testing.T) {
	usr := User{ID: "u1", Username: "tutor1a", FullName: "T", Role: Tutor{Sections: []string{"1A"}, Courses: []string{"mat"}}}
	assert.Equal(t, Profile{
		ID:       "u1",
		Username: "tutor1a",
		FullName: "T",
		Role:     KindTutor,
		Sections: []string{"1A"},
		Courses:  []string{"mat"},
	}, usr.Profile())

	require.NoError(t, usr.SetPassword("pwd"))
	assert.NoError(t, usr.CheckPassword("pwd"))
	assert.Error(t, usr.CheckPassword("lol"))
}
