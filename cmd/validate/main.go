package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gnemet/gridview"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gridview-validate <grid_config1> [grid_config2] ...")
		os.Exit(1)
	}

	allValid := true
	for _, arg := range os.Args[1:] {
		path, err := filepath.Abs(arg)
		if err != nil {
			fmt.Printf("❌ Invalid config path: %s\n", arg)
			allValid = false
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("❌ Error reading %s: %v\n", filepath.Base(path), err)
			allValid = false
			continue
		}

		err = gridview.ValidateConfig(data, gridview.FormatOf(path))
		var verr *gridview.ValidationError
		switch {
		case err == nil:
			fmt.Printf("✅ %s is valid.\n", filepath.Base(path))
		case errors.As(err, &verr):
			fmt.Printf("❌ %s is invalid!\n", filepath.Base(path))
			for _, p := range verr.Problems {
				fmt.Printf("   - %s\n", p)
			}
			allValid = false
		default:
			fmt.Printf("❌ Error validating %s: %v\n", filepath.Base(path), err)
			allValid = false
		}
	}

	if !allValid {
		os.Exit(1)
	}
}
