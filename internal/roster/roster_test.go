// ABOUTME: Tests for roster parsing and validation
// ABOUTME: Covers defaults, field rules and cross-reference errors

package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRoster = `
default_password = "1234"

[[schools]]
name = "School A"
manager_name = "Manager"
username = "mgr"

[[schools.teachers]]
name = "Teacher One"
username = "t1"
password = "secret"

[[schools.grades]]
name = "Grade 1"

[[schools.grades.classes]]
name = "1A"

[[schools.grades.classes.subjects]]
name = "Math"
teacher = "t1"
coefficient = 3

[[schools.grades.classes.subjects]]
name = "Art"
teacher = "t1"

[[schools.grades.classes.students]]
name = "Student One"
username = "s1"
`

func TestParse_Valid(t *testing.T) {
	r, err := Parse(validRoster)
	require.NoError(t, err)

	require.Len(t, r.Schools, 1)
	school := r.Schools[0]
	assert.Equal(t, "School A", school.Name)
	require.Len(t, school.Grades, 1)
	class := school.Grades[0].Classes[0]
	assert.Equal(t, 3, class.Subjects[0].Coefficient)
	assert.Equal(t, 1, class.Subjects[1].Coefficient, "missing coefficient defaults to 1")
	assert.Equal(t, "s1", class.Students[0].Username)
}

func TestPasswordOr(t *testing.T) {
	r, err := Parse(validRoster)
	require.NoError(t, err)

	assert.Equal(t, "secret", r.PasswordOr(r.Schools[0].Teachers[0].Password))
	assert.Equal(t, "1234", r.PasswordOr(r.Schools[0].Password))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "bad toml",
			data:    "default_password = ",
			wantErr: "parsing roster",
		},
		{
			name:    "no schools",
			data:    `default_password = "1234"`,
			wantErr: "Schools",
		},
		{
			name: "short default password",
			data: `
default_password = "1"
[[schools]]
name = "A"
username = "m"
`,
			wantErr: "DefaultPassword",
		},
		{
			name: "blank school name",
			data: `
default_password = "1234"
[[schools]]
name = "  "
username = "m"
`,
			wantErr: "notblank",
		},
		{
			name: "unknown teacher",
			data: `
default_password = "1234"
[[schools]]
name = "A"
username = "m"
[[schools.grades]]
name = "G"
[[schools.grades.classes]]
name = "C"
[[schools.grades.classes.subjects]]
name = "Math"
teacher = "ghost"
`,
			wantErr: "unknown teacher",
		},
		{
			name: "duplicate student",
			data: `
default_password = "1234"
[[schools]]
name = "A"
username = "m"
[[schools.grades]]
name = "G"
[[schools.grades.classes]]
name = "C"
[[schools.grades.classes.students]]
name = "X"
username = "dup"
[[schools.grades.classes.students]]
name = "Y"
username = "dup"
`,
			wantErr: "duplicate student",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.toml")
	require.NoError(t, os.WriteFile(path, []byte(validRoster), 0600))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Schools, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
