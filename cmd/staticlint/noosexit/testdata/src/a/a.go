package main

import (
	"log"
	"os"
)

func helper() {
	os.Exit(2)
}

func main() {
	helper()
	log.Fatal("stop")   // want "avoid using log.Fatal in main.main"
	log.Fatalf("%d", 1) // want "avoid using log.Fatalf in main.main"
	os.Exit(1)          // want "avoid using os.Exit in main.main"
}
