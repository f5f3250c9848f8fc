package main

import "github.com/anshumantekriwal/kadena-agents/pkg/cli"

func main() {
	cli.Execute()
}
