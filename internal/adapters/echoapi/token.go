package echoapi

import (
	"os"
	"strings"

	perr "echokit/internal/platform/errors"
)

// LoadToken returns token when set, otherwise the trimmed contents of path
func LoadToken(token, path string) (string, error) {
	if t := strings.TrimSpace(token); t != "" {
		return t, nil
	}
	if path == "" {
		path = defaultTokenFile
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnauthorized, "echo token not configured and %s unreadable", path)
	}
	t := strings.TrimSpace(string(b))
	if t == "" {
		return "", perr.Unauthorizedf("echo token file %s is empty", path)
	}
	return t, nil
}
