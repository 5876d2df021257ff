package main

import "os"

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		a.fail(err)
		os.Exit(1)
	}
}
