package main

import (
	"fmt"
	"io"
	"os"

	"meow/internal/api"
	"meow/internal/format"
)

var (
	stdout          io.Writer        = os.Stdout
	outputFormatter format.Formatter = format.JSONFormatter{}
)

func writeJSON(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeCatList(cats []api.CatRef) error {
	for _, cat := range cats {
		if err := writePlain("%s\n", cat.ID); err != nil {
			return err
		}
	}
	return nil
}
