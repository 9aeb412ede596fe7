package catalog

import "path/filepath"

// DeclarativeUserGroup is a group of users, possibly nested in parents.
type DeclarativeUserGroup struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Parents     []Identifier `json:"parents,omitempty" yaml:"parents,omitempty"`
	Permissions []Permission `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeUserGroups is the organization's user group collection.
type DeclarativeUserGroups struct {
	UserGroups []DeclarativeUserGroup `json:"userGroups" yaml:"userGroups"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// ToAPI returns the body of a declarative user groups PUT.
func (g *DeclarativeUserGroups) ToAPI() *DeclarativeUserGroups {
	return &DeclarativeUserGroups{UserGroups: orEmpty(g.UserGroups), Extra: g.Extra}
}

// StoreToDisk writes one file per group under analytics/user_groups.
func (g *DeclarativeUserGroups) StoreToDisk(analyticsDir string) error {
	return storeEntities(filepath.Join(analyticsDir, LayoutUserGroupsDir), g.UserGroups, userGroupID)
}

// LoadUserGroupsFromDisk reads analytics/user_groups.
func LoadUserGroupsFromDisk(analyticsDir string) (*DeclarativeUserGroups, error) {
	items, err := loadEntities(filepath.Join(analyticsDir, LayoutUserGroupsDir), userGroupID)
	if err != nil {
		return nil, err
	}
	return &DeclarativeUserGroups{UserGroups: items}, nil
}

func userGroupID(g DeclarativeUserGroup) string { return g.ID }

// DeclarativeUser is an organization user.
type DeclarativeUser struct {
	ID          string       `json:"id" yaml:"id"`
	AuthID      string       `json:"authId,omitempty" yaml:"authId,omitempty"`
	Email       string       `json:"email,omitempty" yaml:"email,omitempty"`
	Firstname   string       `json:"firstname,omitempty" yaml:"firstname,omitempty"`
	Lastname    string       `json:"lastname,omitempty" yaml:"lastname,omitempty"`
	UserGroups  []Identifier `json:"userGroups,omitempty" yaml:"userGroups,omitempty"`
	Settings    []Setting    `json:"settings,omitempty" yaml:"settings,omitempty"`
	Permissions []Permission `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// DeclarativeUsers is the organization's user collection.
type DeclarativeUsers struct {
	Users []DeclarativeUser `json:"users" yaml:"users"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// ToAPI returns the body of a declarative users PUT.
func (u *DeclarativeUsers) ToAPI() *DeclarativeUsers {
	return &DeclarativeUsers{Users: orEmpty(u.Users), Extra: u.Extra}
}

// StoreToDisk writes one file per user under analytics/users.
func (u *DeclarativeUsers) StoreToDisk(analyticsDir string) error {
	return storeEntities(filepath.Join(analyticsDir, LayoutUsersDir), u.Users, userID)
}

// LoadUsersFromDisk reads analytics/users.
func LoadUsersFromDisk(analyticsDir string) (*DeclarativeUsers, error) {
	items, err := loadEntities(filepath.Join(analyticsDir, LayoutUsersDir), userID)
	if err != nil {
		return nil, err
	}
	return &DeclarativeUsers{Users: items}, nil
}

func userID(u DeclarativeUser) string { return u.ID }
