package migrate

import "database/sql"

func init() {
	Register(initialSchema)
	Register(removeInvitations)
}

// initialSchema creates the mirrored tables. Timestamps are stored as
// RFC3339 TEXT; coordinates are stored as a JSON object.
var initialSchema = Migration{
	Version: 1,
	Name:    "initial_schema",
	Up: func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY NOT NULL,
				email TEXT UNIQUE NOT NULL,
				firstName TEXT NOT NULL,
				lastName TEXT NOT NULL,
				avatar TEXT,
				createdAt TEXT NOT NULL,
				updatedAt TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS families (
				id TEXT PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				createdBy TEXT,
				createdAt TEXT NOT NULL,
				updatedAt TEXT NOT NULL,
				FOREIGN KEY (createdBy) REFERENCES users(id) ON DELETE SET NULL
			)`,
			`CREATE TABLE IF NOT EXISTS familyMembers (
				id TEXT PRIMARY KEY NOT NULL,
				user TEXT NOT NULL,
				family TEXT NOT NULL,
				createdAt TEXT NOT NULL,
				FOREIGN KEY (user) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (family) REFERENCES families(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS invitations (
				id TEXT PRIMARY KEY NOT NULL,
				sender TEXT NOT NULL,
				recipient TEXT NOT NULL,
				family TEXT,
				createdAt TEXT NOT NULL,
				FOREIGN KEY (sender) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (recipient) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (family) REFERENCES families(id) ON DELETE SET NULL
			)`,
			`CREATE TABLE IF NOT EXISTS locations (
				id TEXT PRIMARY KEY NOT NULL,
				user TEXT NOT NULL,
				coordinates TEXT NOT NULL,
				createdAt TEXT NOT NULL,
				FOREIGN KEY (user) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_familyMembers_family ON familyMembers(family)`,
			`CREATE INDEX IF NOT EXISTS idx_familyMembers_user ON familyMembers(user)`,
			`CREATE INDEX IF NOT EXISTS idx_locations_user ON locations(user)`,
			`CREATE INDEX IF NOT EXISTS idx_locations_createdAt ON locations(createdAt)`,
		}

		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	},
	Down: func(tx *sql.Tx) error {
		stmts := []string{
			`DROP TABLE IF EXISTS locations`,
			`DROP TABLE IF EXISTS invitations`,
			`DROP TABLE IF EXISTS familyMembers`,
			`DROP TABLE IF EXISTS families`,
			`DROP TABLE IF EXISTS users`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	},
}

// removeInvitations drops the local invitations mirror. Invitations are
// served straight from the remote and never cached, so the table only
// wasted space and a foreign key.
var removeInvitations = Migration{
	Version: 2,
	Name:    "remove_invitations",
	Up: func(tx *sql.Tx) error {
		_, err := tx.Exec(`DROP TABLE IF EXISTS invitations`)
		return err
	},
	Down: func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS invitations (
			id TEXT PRIMARY KEY NOT NULL,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			family TEXT,
			createdAt TEXT NOT NULL
		)`)
		return err
	},
}
