package main

import "github.com/oshokin/serve-bootstrap/cmd/bootstrap/cmd"

func main() {
	cmd.Execute()
}
