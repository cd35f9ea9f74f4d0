// Package main is the entry point for the length-of-stay insight service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/los-insight/cmd/los-insight/app"
)

func main() {
	app.NewApp().Run()
}
