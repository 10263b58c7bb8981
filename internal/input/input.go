// Package input loads candidate URLs from a newline-delimited file.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const bom = "\ufeff"

// Load reads the file at path and returns its unique, non-blank lines,
// trimmed, in the order they first appear.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	urls, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return urls, nil
}

// Read is Load for an already opened reader.
func Read(r io.Reader) ([]string, error) {
	var urls []string
	seen := make(map[string]struct{})

	// bufio.Reader rather than Scanner: lines have no length limit.
	reader := bufio.NewReader(r)
	first := true
	for {
		line, err := reader.ReadString('\n')
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		if line = strings.TrimSpace(line); line != "" {
			if _, dup := seen[line]; !dup {
				seen[line] = struct{}{}
				urls = append(urls, line)
			}
		}

		if errors.Is(err, io.EOF) {
			return urls, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
