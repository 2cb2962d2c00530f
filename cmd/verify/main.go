// Package main provides the verify CLI.
//
// verify drives a browser through the pages of a verification scenario,
// prints the values it reads and saves a screenshot of every page.
//
// Usage:
//
//	verify run smoke
//	verify run --file scenarios.yaml staging
//	verify list
//	verify fixture --addr localhost:5174
//
// See --help for all available options.
package main

func main() {
	Execute()
}
