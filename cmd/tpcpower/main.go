package main

import (
	"errors"
	"os"

	"github.com/pterm/pterm"

	apierrors "tpcpower/internal/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError prints err, one line per rejected field for validation failures
func printError(err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok {
			pterm.Error.Println(apiErr.Message)
			for _, fe := range details.Errors {
				pterm.Error.Printfln("  %s: %s", fe.Field, fe.Message)
			}
			return
		}
	}
	pterm.Error.Println(err.Error())
}
