// Command author-report reads URLs from input/urls.txt, fetches the
// about.json document under each https URL, and writes the author of every
// listing to a timestamped CSV file in output/.
//
// Usage:
//
//	author-report
//	author-report -i lists/urls.txt -o reports --concurrency 4
//
// See --help for all available options.
package main

func main() {
	Execute()
}
