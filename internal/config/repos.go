package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RepoEntry is one line of the repository list. Path never carries a
// tag; Tag is empty when the entry names a whole repository whose tags
// are enumerated by the caller.
type RepoEntry struct {
	Path string
	Tag  string
}

// LoadRepoList parses a newline-delimited repository list. Blank lines
// and lines starting with # are skipped. An entry is either a
// repository path ("library/python", "ghcr.io/org/app") or a full
// reference with a tag ("library/python:3.12-slim").
func LoadRepoList(path string) ([]RepoEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository list: %w", err)
	}
	defer f.Close()

	var entries []RepoEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseRepoLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read repository list: %w", err)
	}
	return entries, nil
}

func parseRepoLine(line string) (RepoEntry, error) {
	// A colon after the last slash separates the tag. Colons before it
	// belong to a registry port ("localhost:5000/app").
	slash := strings.LastIndex(line, "/")
	colon := strings.LastIndex(line, ":")
	if colon > slash {
		path, tag := line[:colon], line[colon+1:]
		if path == "" || tag == "" {
			return RepoEntry{}, fmt.Errorf("malformed reference %q", line)
		}
		return RepoEntry{Path: path, Tag: tag}, nil
	}
	return RepoEntry{Path: line}, nil
}
