package main

import (
	"errors"
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	root := newRootCmd(os.Stdout)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(classify(err), &ee) {
			fmt.Fprintln(os.Stderr, ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
