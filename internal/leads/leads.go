// Package leads parses the tab-separated lead lists produced by the
// scraping side of the pipeline into call targets.
package leads

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nightline/internal/model"
)

// availabilityMarkers flag a lead as advertising round-the-clock coverage
// when they appear anywhere on its line.
var availabilityMarkers = []string{
	"24/7",
	"24 hour",
	"24-hour",
	"around the clock",
}

// Parse reads lead lines of the form "phone\tname\tlocation[\tmarker]".
// Blank lines and lines starting with '#' are skipped. Lines with fewer
// than two fields are ignored rather than treated as errors; lead files
// are hand-edited often enough that a stray line should not kill a run.
func Parse(r io.Reader) ([]model.CallTarget, error) {
	var targets []model.CallTarget

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		target := model.CallTarget{
			Phone:        strings.TrimSpace(parts[0]),
			BusinessName: strings.TrimSpace(parts[1]),
			Claims24x7:   claims24x7(line),
		}
		if len(parts) > 2 {
			target.Location = strings.TrimSpace(parts[2])
		}
		if target.Phone == "" {
			continue
		}
		targets = append(targets, target)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "leads: scan")
	}
	return targets, nil
}

// LoadFile parses a lead file from disk.
func LoadFile(path string) ([]model.CallTarget, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: open %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Filter24x7 keeps only targets that advertise round-the-clock coverage.
func Filter24x7(targets []model.CallTarget) []model.CallTarget {
	var out []model.CallTarget
	for _, t := range targets {
		if t.Claims24x7 {
			out = append(out, t)
		}
	}
	return out
}

// Limit truncates a target list to at most n entries. n <= 0 means no limit.
func Limit(targets []model.CallTarget, n int) []model.CallTarget {
	if n <= 0 || n >= len(targets) {
		return targets
	}
	return targets[:n]
}

// NormalizePhone reduces a phone number to a canonical +<digits> form for
// dedup keys. Ten-digit US numbers get a +1 prefix; anything else keeps its
// digits as-is. It does not validate - the dispatcher expects numbers that
// were already dialable.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case d == "":
		return ""
	case len(d) == 10:
		return "+1" + d
	default:
		return "+" + d
	}
}

func claims24x7(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range availabilityMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
