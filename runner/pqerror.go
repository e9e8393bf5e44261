package runner

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"
)

// DescribeError renders err from running script. Server errors carry severity,
// SQLSTATE and, when the server reports a position, the line and column in
// script.
func DescribeError(script string, err error) string {
	if err == nil {
		return ""
	}

	var e *pq.Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	msg := fmt.Sprintf("[%s code=%s] %s", e.Severity, e.Code, e.Message)
	if e.Position != "" {
		if line, col, err := calcLineCol(script, e.Position); err == nil {
			msg += fmt.Sprintf(" at line=%d col=%d", line, col)
		}
	}
	if e.Detail != "" {
		msg += "; " + e.Detail
	}
	if e.Hint != "" {
		msg += "; hint: " + e.Hint
	}
	return msg
}

// IsServerError reports whether err came from the server rather than the network.
func IsServerError(err error) bool {
	var e *pq.Error
	return errors.As(err, &e)
}

// SQLState returns the SQLSTATE code of a server error or "".
func SQLState(err error) string {
	var e *pq.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return ""
}

// calcLineCol converts a 1-based character position reported by the server
// into a line and column.
func calcLineCol(script string, pos string) (int, int, error) {
	position, err := strconv.Atoi(pos)
	if err != nil {
		return 0, 0, err
	}

	runes := []rune(script)
	line := 1
	column := 0
	max := len(runes)

	i := 0
	for i < max && i < position {
		ch := runes[i]
		// Windows
		if ch == '\r' {
			if i+1 < max && runes[i+1] == '\n' {
				i++
			}
			if i < position-1 {
				line++
				column = 0
			}
		} else if ch == '\n' {
			if i < position-1 {
				line++
				column = 0
			}
		} else {
			column++
		}
		i++
	}

	return line, column, nil
}
