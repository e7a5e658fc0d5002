package main

import (
	"fmt"
	"os"
)

func cleanup() {
	fmt.Println("cleanup")
}

func main() {
	defer cleanup()
	os.Exit(1) // want "avoid using os.Exit in main.main"
}
