// ABOUTME: TOML roster model with validation for the seed command
// ABOUTME: Uses go-playground/validator for field rules and cross-reference checks

package roster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Roster is the root of a roster file.
type Roster struct {
	DefaultPassword string   `toml:"default_password" validate:"required,min=4"`
	Schools         []School `toml:"schools" validate:"required,min=1,dive"`
}

// School is one school with its manager login.
type School struct {
	Name        string    `toml:"name" validate:"notblank"`
	ManagerName string    `toml:"manager_name"`
	Username    string    `toml:"username" validate:"notblank"`
	Password    string    `toml:"password"`
	Teachers    []Teacher `toml:"teachers" validate:"dive"`
	Grades      []Grade   `toml:"grades" validate:"dive"`
}

// Teacher is a school teacher login.
type Teacher struct {
	Name     string `toml:"name" validate:"notblank"`
	Username string `toml:"username" validate:"notblank"`
	Password string `toml:"password"`
}

// Grade groups classes of the same year.
type Grade struct {
	Name    string  `toml:"name" validate:"notblank"`
	Classes []Class `toml:"classes" validate:"dive"`
}

// Class holds subjects and students.
type Class struct {
	Name     string    `toml:"name" validate:"notblank"`
	Subjects []Subject `toml:"subjects" validate:"dive"`
	Students []Student `toml:"students" validate:"dive"`
}

// Subject is taught in a class by the teacher with the given username.
type Subject struct {
	Name        string `toml:"name" validate:"notblank"`
	Teacher     string `toml:"teacher" validate:"notblank"`
	Coefficient int    `toml:"coefficient" validate:"gte=0,lte=10"`
}

// Student is a class member login.
type Student struct {
	Name     string `toml:"name" validate:"notblank"`
	Username string `toml:"username" validate:"notblank"`
	Password string `toml:"password"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Load reads and validates a roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes and validates roster TOML. Subjects without a coefficient get 1.
func Parse(data string) (*Roster, error) {
	var r Roster
	if _, err := toml.Decode(data, &r); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	for si := range r.Schools {
		for gi := range r.Schools[si].Grades {
			for ci := range r.Schools[si].Grades[gi].Classes {
				subjects := r.Schools[si].Grades[gi].Classes[ci].Subjects
				for i := range subjects {
					if subjects[i].Coefficient == 0 {
						subjects[i].Coefficient = 1
					}
				}
			}
		}
	}
	return &r, nil
}

// Validate checks field rules and cross references. It reports the first problem.
func (r *Roster) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid roster: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid roster: %w", err)
	}

	managers := map[string]bool{}
	teachers := map[string]bool{}
	students := map[string]bool{}
	for _, s := range r.Schools {
		if managers[s.Username] {
			return fmt.Errorf("invalid roster: duplicate manager username %q", s.Username)
		}
		managers[s.Username] = true

		own := map[string]bool{}
		for _, t := range s.Teachers {
			if teachers[t.Username] {
				return fmt.Errorf("invalid roster: duplicate teacher username %q", t.Username)
			}
			teachers[t.Username] = true
			own[t.Username] = true
		}

		for _, g := range s.Grades {
			for _, c := range g.Classes {
				for _, sub := range c.Subjects {
					if !own[sub.Teacher] {
						return fmt.Errorf("invalid roster: subject %q in class %q references unknown teacher %q",
							sub.Name, c.Name, sub.Teacher)
					}
				}
				for _, st := range c.Students {
					if students[st.Username] {
						return fmt.Errorf("invalid roster: duplicate student username %q", st.Username)
					}
					students[st.Username] = true
				}
			}
		}
	}
	return nil
}

// PasswordOr returns p, or the roster default when p is empty.
func (r *Roster) PasswordOr(p string) string {
	if p == "" {
		return r.DefaultPassword
	}
	return p
}
