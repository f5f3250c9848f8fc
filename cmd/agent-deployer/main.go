package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer"
)

func main() {
	if err := deployer.App(context.Background()); err != nil {
		log.Error("agent deployer stopped", "err", err)
		os.Exit(1)
	}
}
