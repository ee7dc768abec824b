package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

var yes = []string{"yes", "yep", "y"}

// Confirm asks prompt on out and reads one answer line from in. Anything
// but a yes, including a read error, declines.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/n]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	answer := strings.TrimSpace(line)
	for _, y := range yes {
		if strings.EqualFold(answer, y) {
			return true
		}
	}
	return false
}
