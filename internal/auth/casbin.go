package auth

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// Roles known to the route policy. Every account is granted RoleAuthor;
// RoleAuthor inherits RoleAnonymous and RoleAdmin inherits RoleAuthor.
const (
	RoleAnonymous = "anonymous"
	RoleAuthor    = "author"
	RoleAdmin     = "admin"
)

// IsReservedName reports whether name collides with a role and therefore
// cannot be used as a username.
func IsReservedName(name string) bool {
	switch name {
	case RoleAnonymous, RoleAuthor, RoleAdmin:
		return true
	}
	return false
}

// NewEnforcer creates and configures a new Casbin enforcer.
// It sets up the database adapter, loads the model from the specified path,
// and loads all authorization policies from the database.
//
// Parameters:
//   - driverName: The name of the database driver (e.g., "mysql").
//   - dsn: The Data Source Name for the database connection.
//   - modelPath: The file path to the Casbin model configuration (`.conf`).
func NewEnforcer(driverName, dsn, modelPath string) (*casbin.Enforcer, error) {
	opts := &sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	}
	adapter := sqlxadapter.NewAdapterFromOptions(opts)

	enforcer, err := casbin.NewEnforcer(modelPath, adapter)
	if err != nil {
		return nil, err
	}

	// Route objects and methods in the policy are anchored regular expressions.
	enforcer.AddFunction("regexMatch", util.RegexMatchFunc)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	return enforcer, nil
}
