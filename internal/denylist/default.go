package denylist

// DefaultPatterns contains the built-in sensitive keywords and critical paths.
// A match on any keyword blocks a governance bypass outright.
var DefaultPatterns = Patterns{
	Database: []string{
		"database",
		"schema",
		"migration",
		"rls",
		"row level security",
		"foreign key",
		"drop table",
	},
	Security: []string{
		"security",
		"authentication",
		"authorization",
		"auth",
		"password",
		"credential",
		"secret",
		"token",
		"encrypt",
		"permission",
		"vulnerability",
	},
	Financial: []string{
		"payment",
		"billing",
		"invoice",
		"stripe",
		"refund",
		"pricing",
	},
	Privacy: []string{
		"pii",
		"gdpr",
		"privacy",
		"personal data",
		"consent",
	},
	CriticalPaths: []string{
		"**/migrations/**",
		"*.sql",
		"auth*",
		"security*",
		"payment*",
		"billing*",
		"**/middleware/**",
		"*.env",
		".github/workflows/**",
	},
}
