package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern that matches s literally anywhere in the value.
// Backslash is Postgres' default LIKE escape character.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
