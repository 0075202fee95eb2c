// Command contactbook runs the contact book HTTP API.
package main

import (
	"github.com/patric-chuzhbe/contactbook/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		panic(err)
	}
}
