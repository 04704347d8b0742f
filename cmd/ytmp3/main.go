// Command ytmp3 downloads every entry of a YouTube playlist and saves it as
// an audio file.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
)

func main() {
	// Variables from .env never override the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("ytmp3: .env: " + err.Error() + "\n")
	}

	a := &app{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		isTTY:      isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		newBackend: newBackend,
	}
	os.Exit(a.run(context.Background(), os.Args))
}
