package auth

import (
	"context"
	"fmt"

	"go-blog-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

const (
	methodGet     = "^GET$"
	methodPost    = "^POST$"
	methodGetPost = "^(GET|POST)$"
)

// DefaultPolicies is the route policy of the blog. Objects are anchored
// regular expressions over the request path.
var DefaultPolicies = [][]string{
	// Anyone can read feeds, posts, profiles and static pages, and reach
	// the login and registration forms.
	{RoleAnonymous, `^/$`, methodGet},
	{RoleAnonymous, `^/posts/[0-9]+/$`, methodGet},
	{RoleAnonymous, `^/category/[^/]+/$`, methodGet},
	{RoleAnonymous, `^/profile/[^/]+/$`, methodGet},
	{RoleAnonymous, `^/pages/(about|rules)/$`, methodGet},
	{RoleAnonymous, `^/auth/(login|registration|logout)/$`, methodGetPost},
	{RoleAnonymous, `^/auth/oidc/(login|callback)$`, methodGet},
	{RoleAnonymous, `^/(sitemap\.xml|robots\.txt)$`, methodGet},

	// Authors write posts and comments and manage their own profile.
	// Ownership of the individual resource is checked by the services.
	{RoleAuthor, `^/posts/create/$`, methodGetPost},
	{RoleAuthor, `^/posts/[0-9]+/(edit|delete)/$`, methodGetPost},
	{RoleAuthor, `^/posts/[0-9]+/comment/$`, methodPost},
	{RoleAuthor, `^/posts/[0-9]+/edit_comment/[0-9]+/$`, methodGetPost},
	{RoleAuthor, `^/posts/[0-9]+/delete_comment/[0-9]+/$`, methodPost},
	{RoleAuthor, `^/profile/[^/]+/edit/$`, methodGetPost},
	{RoleAuthor, `^/profile/[^/]+/edit/password/$`, methodGetPost},

	// Admins manage categories, locations and post moderation.
	{RoleAdmin, `^/admin/.*$`, methodGetPost},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	inheritance := [][2]string{
		{RoleAuthor, RoleAnonymous},
		{RoleAdmin, RoleAuthor},
	}
	for _, link := range inheritance {
		if has, _ := e.HasRoleForUser(link[0], link[1]); !has {
			if _, err := e.AddRoleForUser(link[0], link[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", link[0], link[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}

// AccountLookup reports whether a local account exists.
type AccountLookup interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// GrantAdmins gives the admin role to each configured username that belongs
// to an existing account. It returns the configured names that have no
// account. Such a name loses any admin role left from an earlier run, so an
// account registered under it later does not inherit the role.
func GrantAdmins(ctx context.Context, e casbin.IEnforcer, usernames []string, accounts AccountLookup, log logger.Logger) []string {
	var missing []string
	for _, name := range usernames {
		if name == "" || IsReservedName(name) {
			continue
		}
		exists, err := accounts.ExistsByUsername(ctx, name)
		if err != nil {
			log.Error(err, fmt.Sprintf("Failed to look up admin account '%s'", name))
			missing = append(missing, name)
			continue
		}
		if !exists {
			log.Warn(fmt.Sprintf("Admin '%s' has no account; register it before listing it as admin", name))
			if _, err := e.DeleteRoleForUser(name, RoleAdmin); err != nil {
				log.Error(err, fmt.Sprintf("Failed to revoke admin role from '%s'", name))
			}
			missing = append(missing, name)
			continue
		}
		if _, err := e.AddRoleForUser(name, RoleAdmin); err != nil {
			log.Error(err, fmt.Sprintf("Failed to grant admin role to '%s'", name))
		}
	}
	return missing
}
