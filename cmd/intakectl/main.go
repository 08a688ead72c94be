// Command intakectl administers the intake database from the shell.
package main

import "github.com/yukikurage/stage-intake/internal/cli"

func main() {
	cli.Execute()
}
