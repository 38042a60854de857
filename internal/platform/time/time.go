// Package time converts the strftime style date formats used by ECHO program tables
package time

import (
	"fmt"
	"strings"
	"time"
)

var directives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'B': "January",
	'p': "PM",
	'%': "%",
}

// Layout converts a strftime format such as %m/%d/%Y into a Go layout
func Layout(strftime string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(strftime); i++ {
		c := strftime[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(strftime) {
			return "", fmt.Errorf("dangling %% in %q", strftime)
		}
		i++
		g, ok := directives[strftime[i]]
		if !ok {
			return "", fmt.Errorf("unsupported directive %%%c in %q", strftime[i], strftime)
		}
		b.WriteString(g)
	}
	return b.String(), nil
}

// Parse parses value with a strftime format
func Parse(strftime, value string) (time.Time, error) {
	layout, err := Layout(strftime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(layout, strings.TrimSpace(value))
}
