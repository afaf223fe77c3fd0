package main

import "context"

func main() {
	app := mustBootstrapCargoAPI()
	defer app.Close()

	if err := app.Run(); err != nil && err != context.Canceled {
		panic(err)
	}
}
