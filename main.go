package main

import "critreport/internal/app"

func main() {
	app.Main()
}
