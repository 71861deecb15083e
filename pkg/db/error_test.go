package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`), true},
		{"mysql", errors.New("Error 1062: Duplicate entry"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: users.email"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestNewTestIsolated(t *testing.T) {
	type row struct {
		ID   int64
		Name string
	}
	a, err := NewTest()
	assert.NoError(t, err)
	b, err := NewTest()
	assert.NoError(t, err)

	assert.NoError(t, a.AutoMigrate(&row{}))
	assert.NoError(t, a.Create(&row{ID: 1, Name: "x"}).Error)

	assert.False(t, b.Migrator().HasTable(&row{}))
}
