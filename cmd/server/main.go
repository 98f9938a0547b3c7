package main

import "concedii/internal/app/server"

func main() {
	server.Start()
}
