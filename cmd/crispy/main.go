package main

import (
	"github.com/GlasgowSolarPhysics/crispy/internal/app"
)

func main() {
	app.Run()
}
