// internal/models/user.go
package models

import (
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	Email        string `json:"email" gorm:"column:email;size:255;primaryKey"`
	FirstName    string `json:"first_name" gorm:"column:first_name;size:100;not null"`
	LastName     string `json:"last_name" gorm:"column:last_name;size:100;not null"`
	PasswordHash string `json:"-" gorm:"column:password;size:255;not null"`
	Organization string `json:"organization,omitempty" gorm:"column:organization;size:255"`
	Permissions  string `json:"permissions,omitempty" gorm:"column:permissions;type:text"`
}

func (User) TableName() string { return TableUsers }

// UserByOrganization is the organization-partitioned copy of a user row.
type UserByOrganization struct {
	Organization string `gorm:"column:organization;size:255;primaryKey"`
	Email        string `gorm:"column:email;size:255;primaryKey"`
	FirstName    string `gorm:"column:first_name;size:100;not null"`
	LastName     string `gorm:"column:last_name;size:100;not null"`
	PasswordHash string `gorm:"column:password;size:255;not null"`
	Permissions  string `gorm:"column:permissions;type:text"`
}

func (UserByOrganization) TableName() string { return TableUsersByOrganization }

func (u User) OrganizationRow() UserByOrganization {
	return UserByOrganization{
		Organization: u.Organization,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Permissions:  u.Permissions,
	}
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
