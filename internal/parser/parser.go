// Package parser extracts question/answer entries from markdown notes.
//
// An entry starts at a line beginning with "Q:" and its answer at a line
// beginning with "A:". Following lines continue the current block until the
// next prefix, a "---" separator, or the end of the file. Entries without an
// answer are skipped.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
)

// Entry is one question and answer pair found in a file.
type Entry struct {
	Question string
	Answer   string
	Line     int // line of the "Q:" prefix, 1-based
}

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		}
		block = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Question != "" && current.Answer != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case line == separator:
			finishEntry()
		case strings.HasPrefix(line, questionPrefix):
			// A new question always starts a new entry.
			finishEntry()
			currentState = readingQuestion
			current.Line = lineNo
			block = append(block, trimPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix) && currentState != seeking:
			flushBlock()
			currentState = readingAnswer
			block = append(block, trimPrefix(line, answerPrefix))
		case currentState != seeking:
			block = append(block, line)
		}
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func trimPrefix(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
