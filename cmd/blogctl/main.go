// Command blogctl administers the blog database: seeding, admin accounts and bulk moderation.
package main

import (
	"os"

	"github.com/devnovate/blog/cmd/blogctl/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
