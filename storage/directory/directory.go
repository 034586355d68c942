// Package directory loads the school directory (users, roster, catalog and periods) from a YAML file.
package directory

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/school"
)

type (
	userRecord struct {
		ID           string   `mapstructure:"id"`
		Username     string   `mapstructure:"username"`
		FullName     string   `mapstructure:"full_name"`
		Email        string   `mapstructure:"email"`
		Role         string   `mapstructure:"role"`
		Sections     []string `mapstructure:"sections"`
		Courses      []string `mapstructure:"courses"`
		PasswordHash string   `mapstructure:"password_hash"`
	}

	file struct {
		Users     []userRecord      `mapstructure:"users"`
		Students  []school.Student  `mapstructure:"students"`
		Courses   []school.Course   `mapstructure:"courses"`
		Bimesters []school.Bimester `mapstructure:"bimesters"`
	}
)

// Load reads the directory file at path. The format is picked from the extension (yaml, json, toml).
func Load(path string) (*school.StaticDirectory, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading directory file %s", path)
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, errors.Wrap(err, "decoding directory file")
	}
	return build(f)
}

func build(f file) (*school.StaticDirectory, error) {
	if len(f.Bimesters) == 0 {
		return nil, errors.New("directory: no bimesters")
	}

	ids := make(map[string]bool)
	sections := make(map[string]bool)
	for _, s := range f.Students {
		if s.ID == "" || s.Section == "" {
			return nil, fmt.Errorf("directory: student %q without id or section", s.FullName)
		}
		if ids["student:"+s.ID] {
			return nil, fmt.Errorf("directory: duplicate student %q", s.ID)
		}
		ids["student:"+s.ID] = true
		sections[s.Section] = true
	}
	for _, c := range f.Courses {
		if c.ID == "" {
			return nil, fmt.Errorf("directory: course %q without id", c.Name)
		}
		if ids["course:"+c.ID] {
			return nil, fmt.Errorf("directory: duplicate course %q", c.ID)
		}
		ids["course:"+c.ID] = true
	}
	monthOf := make(map[string]string)
	for _, b := range f.Bimesters {
		if b.ID == "" || len(b.Months) == 0 {
			return nil, fmt.Errorf("directory: bimester %q without id or months", b.Name)
		}
		for _, m := range b.Months {
			if other, ok := monthOf[m]; ok {
				return nil, fmt.Errorf("directory: month %q belongs to bimesters %q and %q", m, other, b.ID)
			}
			monthOf[m] = b.ID
		}
	}

	users := make([]school.User, 0, len(f.Users))
	for _, rec := range f.Users {
		rec.ID = core.CleanString(rec.ID)
		if rec.ID == "" || rec.Username == "" {
			return nil, errors.New("directory: user without id or username")
		}
		if ids["user:"+rec.ID] {
			return nil, fmt.Errorf("directory: duplicate user %q", rec.ID)
		}
		ids["user:"+rec.ID] = true

		for _, sec := range rec.Sections {
			if !sections[sec] {
				return nil, fmt.Errorf("directory: user %q: unknown section %q", rec.ID, sec)
			}
		}
		for _, c := range rec.Courses {
			if !ids["course:"+c] {
				return nil, fmt.Errorf("directory: user %q: unknown course %q", rec.ID, c)
			}
		}

		role, err := school.NewRole(school.RoleKind(core.CleanString(rec.Role, true)), rec.Sections, rec.Courses)
		if err != nil {
			return nil, errors.Wrapf(err, "directory: user %q", rec.ID)
		}
		users = append(users, school.User{
			ID:           rec.ID,
			Username:     core.CleanString(rec.Username),
			FullName:     core.CleanString(rec.FullName),
			Email:        core.CleanString(rec.Email, true),
			Role:         role,
			PasswordHash: []byte(rec.PasswordHash),
		})
	}

	return school.NewDirectory(users, f.Students, f.Courses, f.Bimesters), nil
}
