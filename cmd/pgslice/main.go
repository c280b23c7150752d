// Command pgslice extracts a referentially-consistent slice of a Postgres
// database rooted at a single row.
package main

import "github.com/dbsmedya/pgslice/cmd/pgslice/cmd"

func main() {
	cmd.Execute()
}
