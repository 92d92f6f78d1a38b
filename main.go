package main

import "github.com/klytics/scadaflat/cmd"

func main() {
	cmd.Execute()
}
