package main

import "github.com/example/ikon-notifier/cmd"

func main() {
	cmd.Execute()
}
