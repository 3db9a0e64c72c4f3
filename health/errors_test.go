package health

import "testing"

func TestSentinelErrors(t *testing.T) {
	for name, err := range map[string]error{
		"ErrCheckFailed":     ErrCheckFailed,
		"ErrCheckTimeout":    ErrCheckTimeout,
		"ErrCheckerNotFound": ErrCheckerNotFound,
	} {
		if err == nil || err.Error() == "" {
			t.Errorf("%s must be a non-empty error", name)
		}
	}
}
