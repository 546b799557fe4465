package main

import (
	"os"

	"github.com/maria2021831011/NoteWhisper/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
